package tools

import (
	"context"
	"fmt"
	"strings"

	"xcodemcp/internal/domain"
	"xcodemcp/internal/resolve"
	"xcodemcp/internal/schema"
	"xcodemcp/internal/tool"
)

func launchAppDevice() *tool.Tool {
	s := schema.MustNew(
		sessionArg(KeyDeviceID),
		sessionArg(KeyBundleID),
		schema.Arg("args", schema.ArrayOf(schema.String()), "Launch arguments"),
	)
	rules := []schema.Rule{
		schema.AllOf([]string{KeyDeviceID, KeyBundleID}, "Launching on a device needs a device and an app"),
	}
	return tool.MustNew("launch_app_device", "Launch an installed app on a connected physical device.", s, rules,
		func(ctx context.Context, p resolve.Params, exec domain.Executor) (domain.ToolResponse, error) {
			deviceID, bundleID := p.String(KeyDeviceID), p.String(KeyBundleID)
			cmd := []string{"xcrun", "devicectl", "device", "process", "launch", "--device", deviceID, bundleID}
			cmd = append(cmd, p.Strings("args")...)
			res, err := exec.Execute(ctx, cmd, domain.ExecOptions{Label: "Launch App on Device"})
			if err != nil {
				return domain.ToolResponse{}, fmt.Errorf("launch app on device: %w", err)
			}
			if !res.Success {
				return commandFailed("Launch app on device", res), nil
			}
			return domain.TextResponse(strings.TrimSpace(fmt.Sprintf("Launched %s on device %s.\n%s", bundleID, deviceID, strings.TrimSpace(res.Output)))), nil
		})
}
