package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"xcodemcp/internal/mcpserver"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve tools over MCP on stdin/stdout",
		Long:  "Starts the MCP stdio server. Logs go to stderr or general.logFile; stdout carries the protocol.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.collector != nil {
		go func() {
			if err := a.collector.Serve(ctx, cfg.Metrics.Addr, a.logger); err != nil {
				a.logger.Error("metrics endpoint error", "err", err)
			}
		}()
	}

	srv, err := mcpserver.New("xcodemcp", version, a.registry, a.logger)
	if err != nil {
		return err
	}
	a.logger.Info("serving MCP on stdio", "version", version, "tools", len(a.registry.Names()))
	if err := srv.ServeStdio(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return fmt.Errorf("serve: %w", err)
	}
	a.logger.Info("shutdown complete")
	return nil
}

func callCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call [tool] [json-args]",
		Short: "Invoke one tool and print its response",
		Long: `Runs a single tool through the same resolution pipeline as the MCP server.
With session.persist enabled, defaults set by earlier calls are applied.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			callArgs := map[string]any{}
			if len(args) == 2 {
				if err := json.Unmarshal([]byte(args[1]), &callArgs); err != nil {
					return fmt.Errorf("arguments must be a JSON object: %w", err)
				}
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			resp := a.registry.Call(cmd.Context(), args[0], callArgs)
			fmt.Println(resp.JSON())
			if resp.IsError {
				return fmt.Errorf("%s returned an error", args[0])
			}
			return nil
		},
	}
}

func toolsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List registered tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			defs := a.registry.Definitions()
			if asJSON {
				data, _ := json.MarshalIndent(defs, "", "  ")
				fmt.Println(string(data))
				return nil
			}
			for _, d := range defs {
				fmt.Printf("  %-22s %s\n", d.Name, d.Description)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print definitions with input schemas")
	return cmd
}
