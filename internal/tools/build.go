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

const defaultConfiguration = "Debug"

// buildParams is the resolved argument set shared by the xcodebuild tools.
type buildParams struct {
	ProjectPath     string   `json:"projectPath"`
	WorkspacePath   string   `json:"workspacePath"`
	Scheme          string   `json:"scheme"`
	Configuration   string   `json:"configuration"`
	DerivedDataPath string   `json:"derivedDataPath"`
	SimulatorID     string   `json:"simulatorId"`
	SimulatorName   string   `json:"simulatorName"`
	UseLatestOS     bool     `json:"useLatestOS"`
	Arch            string   `json:"arch"`
	ExtraArgs       []string `json:"extraArgs"`
	OnlyTesting     []string `json:"onlyTesting"`
	TestPlan        string   `json:"testPlan"`
}

// xcodebuild assembles an xcodebuild invocation for the resolved project or
// workspace, without the trailing action. destination may be empty.
func (bp buildParams) xcodebuild(destination string) []string {
	cmd := []string{"xcodebuild"}
	if bp.WorkspacePath != "" {
		cmd = append(cmd, "-workspace", bp.WorkspacePath)
	} else {
		cmd = append(cmd, "-project", bp.ProjectPath)
	}
	conf := bp.Configuration
	if conf == "" {
		conf = defaultConfiguration
	}
	cmd = append(cmd, "-scheme", bp.Scheme, "-configuration", conf)
	if bp.DerivedDataPath != "" {
		cmd = append(cmd, "-derivedDataPath", bp.DerivedDataPath)
	}
	if destination != "" {
		cmd = append(cmd, "-destination", destination)
	}
	if bp.Arch != "" {
		cmd = append(cmd, "ARCHS="+bp.Arch, "ONLY_ACTIVE_ARCH=NO")
	}
	return append(cmd, bp.ExtraArgs...)
}

// simDestination renders the -destination value for a simulator.
func (bp buildParams) simDestination() string {
	if bp.SimulatorID != "" {
		return "platform=iOS Simulator,id=" + bp.SimulatorID
	}
	dest := "platform=iOS Simulator,name=" + bp.SimulatorName
	if bp.UseLatestOS {
		dest += ",OS=latest"
	}
	return dest
}

func projectFields() []schema.Field {
	return []schema.Field{
		sessionArg(KeyProjectPath),
		sessionArg(KeyWorkspacePath),
		sessionArg(KeyScheme),
		sessionArg(KeyConfiguration),
		sessionArg(KeyDerivedDataPath),
		schema.Arg("extraArgs", schema.ArrayOf(schema.String()), "Additional xcodebuild arguments"),
	}
}

func simBuildFields(extra ...schema.Field) []schema.Field {
	fields := append(projectFields(),
		sessionArg(KeySimulatorID),
		sessionArg(KeySimulatorName),
		sessionArg(KeyUseLatestOS),
		sessionArg(KeyArch),
	)
	return append(fields, extra...)
}

func runXcodebuild(ctx context.Context, exec domain.Executor, label string, cmd []string) (domain.ToolResponse, bool, error) {
	res, err := exec.Execute(ctx, cmd, domain.ExecOptions{Label: label})
	if err != nil {
		return domain.ToolResponse{}, false, fmt.Errorf("%s: %w", strings.ToLower(label), err)
	}
	if !res.Success {
		return commandFailed(label, res), false, nil
	}
	return domain.TextResponse(summarizeBuild(label, res.Output)), true, nil
}

// summarizeBuild keeps warnings, errors and the final status line of an
// xcodebuild log.
func summarizeBuild(label, output string) string {
	var kept []string
	for _, line := range strings.Split(output, "\n") {
		l := strings.TrimSpace(line)
		switch {
		case strings.Contains(l, "warning:"), strings.Contains(l, "error:"), strings.HasPrefix(l, "** "):
			kept = append(kept, l)
		case strings.HasPrefix(l, "Test Case") && strings.Contains(l, "failed"):
			kept = append(kept, l)
		}
	}
	text := label + " succeeded."
	if len(kept) > 0 {
		text += "\n" + strings.Join(kept, "\n")
	}
	return text
}

func buildSim() *tool.Tool {
	return tool.MustNew("build_sim", "Build an app for an iOS simulator.",
		schema.MustNew(simBuildFields()...),
		[]schema.Rule{projectOrWorkspace, schemeRequired, simulatorTarget},
		func(ctx context.Context, p resolve.Params, exec domain.Executor) (domain.ToolResponse, error) {
			bp, err := resolve.Bind[buildParams](p)
			if err != nil {
				return domain.ToolResponse{}, err
			}
			cmd := append(bp.xcodebuild(bp.simDestination()), "build")
			resp, ok, err := runXcodebuild(ctx, exec, "Build", cmd)
			if err != nil || !ok {
				return resp, err
			}
			resp.NextSteps = []domain.NextStep{
				{Tool: "install_app_sim", Label: "Install the built app", Priority: 1},
				{Tool: "test_sim", Label: "Run the tests", Priority: 2},
			}
			return resp, nil
		})
}

func testSim() *tool.Tool {
	fields := simBuildFields(
		schema.Arg("onlyTesting", schema.ArrayOf(schema.String().NonEmpty()), "Test identifiers to run, e.g. AppTests/LoginTests"),
		schema.Arg("testPlan", schema.String(), "Test plan name"),
	)
	return tool.MustNew("test_sim", "Run tests on an iOS simulator.",
		schema.MustNew(fields...),
		[]schema.Rule{projectOrWorkspace, schemeRequired, simulatorTarget},
		func(ctx context.Context, p resolve.Params, exec domain.Executor) (domain.ToolResponse, error) {
			bp, err := resolve.Bind[buildParams](p)
			if err != nil {
				return domain.ToolResponse{}, err
			}
			cmd := bp.xcodebuild(bp.simDestination())
			if bp.TestPlan != "" {
				cmd = append(cmd, "-testPlan", bp.TestPlan)
			}
			for _, id := range bp.OnlyTesting {
				cmd = append(cmd, "-only-testing:"+id)
			}
			resp, _, err := runXcodebuild(ctx, exec, "Test", append(cmd, "test"))
			return resp, err
		})
}

func clean() *tool.Tool {
	return tool.MustNew("clean", "Clean build products for a project or workspace.",
		schema.MustNew(projectFields()...),
		[]schema.Rule{projectOrWorkspace, schemeRequired},
		func(ctx context.Context, p resolve.Params, exec domain.Executor) (domain.ToolResponse, error) {
			bp, err := resolve.Bind[buildParams](p)
			if err != nil {
				return domain.ToolResponse{}, err
			}
			resp, _, err := runXcodebuild(ctx, exec, "Clean", append(bp.xcodebuild(""), "clean"))
			return resp, err
		})
}
