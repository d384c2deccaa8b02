package tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"xcodemcp/internal/domain"
	"xcodemcp/internal/resolve"
	"xcodemcp/internal/schema"
	"xcodemcp/internal/tool"
)

// UI automation drives the simulator through the axe CLI, which addresses
// devices by UDID only.
const axe = "axe"

func uiTool(name, description string, extra []schema.Field, logic tool.LogicFunc) *tool.Tool {
	fields := append([]schema.Field{sessionArg(KeySimulatorID)}, extra...)
	return tool.MustNew(name, description, schema.MustNew(fields...), []schema.Rule{simulatorIDOnly}, logic)
}

func tap() *tool.Tool {
	extra := []schema.Field{
		schema.RequiredArg("x", schema.Int().Min(0), "X coordinate in points"),
		schema.RequiredArg("y", schema.Int().Min(0), "Y coordinate in points"),
		schema.Arg("preDelay", schema.Number().Min(0).Max(10), "Seconds to wait before tapping"),
	}
	return uiTool("tap", "Tap at a point on the simulator screen.", extra,
		func(ctx context.Context, p resolve.Params, exec domain.Executor) (domain.ToolResponse, error) {
			x, y := p.Int("x"), p.Int("y")
			cmd := []string{axe, "tap", "-x", strconv.Itoa(x), "-y", strconv.Itoa(y)}
			if p.Has("preDelay") {
				cmd = append(cmd, "--pre-delay", strconv.FormatFloat(p.Float("preDelay"), 'f', -1, 64))
			}
			cmd = append(cmd, "--udid", p.String(KeySimulatorID))
			res, err := exec.Execute(ctx, cmd, domain.ExecOptions{Label: "Tap"})
			if err != nil {
				return domain.ToolResponse{}, fmt.Errorf("tap: %w", err)
			}
			if !res.Success {
				return commandFailed("Tap", res), nil
			}
			return domain.ToolResponse{
				Content: []domain.ContentItem{domain.TextContent(fmt.Sprintf("Tapped at (%d, %d).", x, y))},
				NextSteps: []domain.NextStep{
					{Tool: "screenshot", Label: "Verify the result", Priority: 1},
				},
			}, nil
		})
}

func typeText() *tool.Tool {
	extra := []schema.Field{
		schema.RequiredArg("text", schema.String().NonEmpty(), "Text to type into the focused field"),
	}
	return uiTool("type_text", "Type text into the focused field of the simulator.", extra,
		func(ctx context.Context, p resolve.Params, exec domain.Executor) (domain.ToolResponse, error) {
			text := p.String("text")
			res, err := exec.Execute(ctx, []string{axe, "type", text, "--udid", p.String(KeySimulatorID)}, domain.ExecOptions{Label: "Type Text"})
			if err != nil {
				return domain.ToolResponse{}, fmt.Errorf("type text: %w", err)
			}
			if !res.Success {
				return commandFailed("Type text", res), nil
			}
			return domain.TextResponse(fmt.Sprintf("Typed %d characters.", len([]rune(text)))), nil
		})
}

func screenshot() *tool.Tool {
	return uiTool("screenshot", "Capture the simulator screen as a PNG image.", nil,
		func(ctx context.Context, p resolve.Params, exec domain.Executor) (domain.ToolResponse, error) {
			path := filepath.Join(os.TempDir(), "xcodemcp_screenshot_"+uuid.NewString()+".png")
			defer os.Remove(path)

			res, err := exec.Execute(ctx, []string{"xcrun", "simctl", "io", p.String(KeySimulatorID), "screenshot", path}, domain.ExecOptions{Label: "Screenshot"})
			if err != nil {
				return domain.ToolResponse{}, fmt.Errorf("screenshot: %w", err)
			}
			if !res.Success {
				return commandFailed("Screenshot", res), nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return domain.ToolResponse{}, fmt.Errorf("read screenshot: %w", err)
			}
			return domain.ToolResponse{
				Content: []domain.ContentItem{domain.ImageContent(base64.StdEncoding.EncodeToString(data), "image/png")},
			}, nil
		})
}
