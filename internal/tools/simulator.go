package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"xcodemcp/internal/domain"
	"xcodemcp/internal/resolve"
	"xcodemcp/internal/schema"
	"xcodemcp/internal/tool"
)

// simTarget is the argument simctl accepts for a device: UDID or name.
func simTarget(p resolve.Params) string {
	if id := p.String(KeySimulatorID); id != "" {
		return id
	}
	return p.String(KeySimulatorName)
}

type simDevice struct {
	Name        string `json:"name"`
	UDID        string `json:"udid"`
	State       string `json:"state"`
	IsAvailable bool   `json:"isAvailable"`
}

type simList struct {
	Devices map[string][]simDevice `json:"devices"`
}

func listSims() *tool.Tool {
	s := schema.MustNew(
		schema.Arg("booted", schema.Bool(), "Only list booted simulators"),
	)
	return tool.MustNew("list_sims", "List available iOS simulators.", s, nil,
		func(ctx context.Context, p resolve.Params, exec domain.Executor) (domain.ToolResponse, error) {
			res, err := exec.Execute(ctx, []string{"xcrun", "simctl", "list", "devices", "available", "--json"}, domain.ExecOptions{Label: "List Simulators"})
			if err != nil {
				return domain.ToolResponse{}, fmt.Errorf("list simulators: %w", err)
			}
			if !res.Success {
				return commandFailed("List simulators", res), nil
			}
			var list simList
			if err := json.Unmarshal([]byte(res.Output), &list); err != nil {
				return domain.ToolResponse{}, fmt.Errorf("parse simctl output: %w", err)
			}

			runtimes := make([]string, 0, len(list.Devices))
			for rt := range list.Devices {
				runtimes = append(runtimes, rt)
			}
			sort.Strings(runtimes)

			var b strings.Builder
			b.WriteString("Available simulators:\n")
			onlyBooted := p.Bool("booted")
			count := 0
			for _, rt := range runtimes {
				var lines []string
				for _, d := range list.Devices[rt] {
					if !d.IsAvailable || (onlyBooted && d.State != "Booted") {
						continue
					}
					lines = append(lines, fmt.Sprintf("  - %s (%s) [%s]", d.Name, d.UDID, d.State))
				}
				if len(lines) == 0 {
					continue
				}
				count += len(lines)
				b.WriteString("\n" + runtimeLabel(rt) + ":\n")
				b.WriteString(strings.Join(lines, "\n"))
				b.WriteString("\n")
			}
			if count == 0 {
				return domain.TextResponse("No simulators found."), nil
			}
			return domain.ToolResponse{
				Content: []domain.ContentItem{domain.TextContent(strings.TrimRight(b.String(), "\n"))},
				NextSteps: []domain.NextStep{
					{Tool: resolve.DefaultSetDefaultsTool, Label: "Store a simulator as default", Params: map[string]any{KeySimulatorID: "UUID_FROM_ABOVE"}, Priority: 1},
					{Tool: "boot_sim", Label: "Boot a simulator", Priority: 2},
				},
			}, nil
		})
}

// runtimeLabel turns "com.apple.CoreSimulator.SimRuntime.iOS-18-2" into "iOS 18.2".
func runtimeLabel(rt string) string {
	name := rt[strings.LastIndex(rt, ".")+1:]
	parts := strings.SplitN(name, "-", 2)
	if len(parts) != 2 {
		return name
	}
	return parts[0] + " " + strings.ReplaceAll(parts[1], "-", ".")
}

func simTool(name, description string, extra []schema.Field, rules []schema.Rule, logic tool.LogicFunc) *tool.Tool {
	fields := append([]schema.Field{sessionArg(KeySimulatorID), sessionArg(KeySimulatorName)}, extra...)
	return tool.MustNew(name, description, schema.MustNew(fields...), append([]schema.Rule{simulatorTarget}, rules...), logic)
}

func bootSim() *tool.Tool {
	return simTool("boot_sim", "Boot an iOS simulator.", nil, nil,
		func(ctx context.Context, p resolve.Params, exec domain.Executor) (domain.ToolResponse, error) {
			target := simTarget(p)
			res, err := exec.Execute(ctx, []string{"xcrun", "simctl", "boot", target}, domain.ExecOptions{Label: "Boot Simulator"})
			if err != nil {
				return domain.ToolResponse{}, fmt.Errorf("boot simulator: %w", err)
			}
			if !res.Success && !strings.Contains(res.Error, "current state: Booted") {
				return commandFailed("Boot simulator", res), nil
			}
			return domain.ToolResponse{
				Content: []domain.ContentItem{domain.TextContent(fmt.Sprintf("Simulator %s booted.", target))},
				NextSteps: []domain.NextStep{
					{Tool: "install_app_sim", Label: "Install an app", Priority: 1},
					{Tool: "launch_app_sim", Label: "Launch an app", Priority: 2},
				},
			}, nil
		})
}

func launchAppSim() *tool.Tool {
	extra := []schema.Field{
		sessionArg(KeyBundleID),
		schema.Arg("args", schema.ArrayOf(schema.String()), "Launch arguments"),
		schema.Arg("env", schema.StringMap(), "Environment variables for the app"),
	}
	return simTool("launch_app_sim", "Launch an installed app in a simulator.", extra, []schema.Rule{bundleRequired},
		func(ctx context.Context, p resolve.Params, exec domain.Executor) (domain.ToolResponse, error) {
			target, bundleID := simTarget(p), p.String(KeyBundleID)
			cmd := append([]string{"xcrun", "simctl", "launch", target, bundleID}, p.Strings("args")...)
			env := make(map[string]string, len(p.StringMap("env")))
			for k, v := range p.StringMap("env") {
				env["SIMCTL_CHILD_"+k] = v
			}
			res, err := exec.Execute(ctx, cmd, domain.ExecOptions{Label: "Launch App", Env: env})
			if err != nil {
				return domain.ToolResponse{}, fmt.Errorf("launch app: %w", err)
			}
			if !res.Success {
				return commandFailed("Launch app", res), nil
			}
			return domain.ToolResponse{
				Content: []domain.ContentItem{domain.TextContent(fmt.Sprintf("Launched %s on %s.\n%s", bundleID, target, strings.TrimSpace(res.Output)))},
				NextSteps: []domain.NextStep{
					{Tool: "screenshot", Label: "Capture the screen", Priority: 1},
					{Tool: "stop_app_sim", Label: "Stop the app", Params: map[string]any{KeyBundleID: bundleID}, Priority: 2},
				},
			}, nil
		})
}

func stopAppSim() *tool.Tool {
	return simTool("stop_app_sim", "Terminate a running app in a simulator.", []schema.Field{sessionArg(KeyBundleID)}, []schema.Rule{bundleRequired},
		func(ctx context.Context, p resolve.Params, exec domain.Executor) (domain.ToolResponse, error) {
			target, bundleID := simTarget(p), p.String(KeyBundleID)
			res, err := exec.Execute(ctx, []string{"xcrun", "simctl", "terminate", target, bundleID}, domain.ExecOptions{Label: "Stop App"})
			if err != nil {
				return domain.ToolResponse{}, fmt.Errorf("stop app: %w", err)
			}
			if !res.Success {
				return commandFailed("Stop app", res), nil
			}
			return domain.TextResponse(fmt.Sprintf("Stopped %s on %s.", bundleID, target)), nil
		})
}

func installAppSim() *tool.Tool {
	extra := []schema.Field{
		schema.RequiredArg("appPath", schema.String().NonEmpty(), "Path to the built .app bundle"),
	}
	return simTool("install_app_sim", "Install a built .app bundle into a simulator.", extra, nil,
		func(ctx context.Context, p resolve.Params, exec domain.Executor) (domain.ToolResponse, error) {
			target := simTarget(p)
			res, err := exec.Execute(ctx, []string{"xcrun", "simctl", "install", target, p.String("appPath")}, domain.ExecOptions{Label: "Install App"})
			if err != nil {
				return domain.ToolResponse{}, fmt.Errorf("install app: %w", err)
			}
			if !res.Success {
				return commandFailed("Install app", res), nil
			}
			return domain.ToolResponse{
				Content: []domain.ContentItem{domain.TextContent(fmt.Sprintf("Installed %s on %s.", p.String("appPath"), target))},
				NextSteps: []domain.NextStep{
					{Tool: "launch_app_sim", Label: "Launch the app", Priority: 1},
				},
			}, nil
		})
}

func openURLSim() *tool.Tool {
	extra := []schema.Field{
		schema.RequiredArg("url", schema.String().Format("url"), "URL or deep link to open"),
	}
	return simTool("open_url_sim", "Open a URL or deep link in a simulator.", extra, nil,
		func(ctx context.Context, p resolve.Params, exec domain.Executor) (domain.ToolResponse, error) {
			target := simTarget(p)
			res, err := exec.Execute(ctx, []string{"xcrun", "simctl", "openurl", target, p.String("url")}, domain.ExecOptions{Label: "Open URL"})
			if err != nil {
				return domain.ToolResponse{}, fmt.Errorf("open url: %w", err)
			}
			if !res.Success {
				return commandFailed("Open URL", res), nil
			}
			return domain.TextResponse(fmt.Sprintf("Opened %s on %s.", p.String("url"), target)), nil
		})
}
