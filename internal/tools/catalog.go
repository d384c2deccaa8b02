// Package tools is the catalog of simulator, build, device and UI tools
// served to agents, plus the session defaults tools that feed them.
package tools

import (
	"fmt"
	"slices"
	"strings"

	"xcodemcp/internal/domain"
	"xcodemcp/internal/schema"
	"xcodemcp/internal/tool"
)

// Session keys shared by every tool.
const (
	KeyProjectPath     = "projectPath"
	KeyWorkspacePath   = "workspacePath"
	KeyScheme          = "scheme"
	KeyConfiguration   = "configuration"
	KeySimulatorID     = "simulatorId"
	KeySimulatorName   = "simulatorName"
	KeyDeviceID        = "deviceId"
	KeyUseLatestOS     = "useLatestOS"
	KeyArch            = "arch"
	KeyDerivedDataPath = "derivedDataPath"
	KeyBundleID        = "bundleId"
)

// sessionFields declares every key the session store may hold, in the
// order session_show_defaults and session_set_defaults present them.
var sessionFields = []schema.Field{
	schema.SessionArg(KeyProjectPath, schema.String(), "Path to the .xcodeproj file"),
	schema.SessionArg(KeyWorkspacePath, schema.String(), "Path to the .xcworkspace file"),
	schema.SessionArg(KeyScheme, schema.String(), "Xcode scheme to build"),
	schema.SessionArg(KeyConfiguration, schema.String(), "Build configuration (Debug, Release, ...)"),
	schema.SessionArg(KeySimulatorID, schema.UUID(), "Simulator UDID"),
	schema.SessionArg(KeySimulatorName, schema.String(), "Simulator name, e.g. iPhone 16"),
	schema.SessionArg(KeyDeviceID, schema.UUID(), "Physical device identifier"),
	schema.SessionArg(KeyUseLatestOS, schema.Bool(), "Pick the newest OS for a named simulator"),
	schema.SessionArg(KeyArch, schema.Enum("arm64", "x86_64"), "Simulator architecture"),
	schema.SessionArg(KeyDerivedDataPath, schema.String(), "DerivedData directory"),
	schema.SessionArg(KeyBundleID, schema.String(), "App bundle identifier"),
}

var sessionSchema = schema.MustNew(sessionFields...)

// SessionKeys returns every known session key.
func SessionKeys() []string {
	return sessionSchema.SessionKeys()
}

// SessionSchema returns the schema of every key the session store may hold.
func SessionSchema() *schema.Schema {
	return sessionSchema
}

func sessionArg(name string) schema.Field {
	f, ok := sessionSchema.Field(name)
	if !ok {
		panic(fmt.Sprintf("unknown session key %q", name))
	}
	return f
}

// Rules shared by several tools.
var (
	projectOrWorkspace = schema.OneOf([]string{KeyProjectPath, KeyWorkspacePath}, "Provide a project or workspace")
	simulatorTarget    = schema.OneOf([]string{KeySimulatorID, KeySimulatorName}, "Provide a simulator")
	schemeRequired     = schema.AllOf([]string{KeyScheme}, "")
	bundleRequired     = schema.AllOf([]string{KeyBundleID}, "")
	simulatorIDOnly    = schema.AllOf([]string{KeySimulatorID}, "UI automation needs a simulator UDID")
)

// exclusiveSessionPairs are keys that must never both be stored.
var exclusiveSessionPairs = schema.ExclusivePairs([]schema.Rule{projectOrWorkspace, simulatorTarget})

// SeedDefaults stores values the store does not hold yet. A key is skipped
// when it is already set, when its exclusive counterpart is already set or
// seeded earlier in the same call, or when it is not a session key. Known
// keys are visited in session key order.
func SeedDefaults(store domain.SessionStore, values map[string]any) (seeded, skipped []string) {
	held := store.GetAll()
	set := make(map[string]any)
	for _, key := range SessionKeys() {
		v, ok := values[key]
		if !ok {
			continue
		}
		if _, ok := held[key]; ok || counterpartHeld(key, held, set) {
			skipped = append(skipped, key)
			continue
		}
		set[key] = v
		seeded = append(seeded, key)
	}
	var unknown []string
	for key := range values {
		if !sessionSchema.Has(key) {
			unknown = append(unknown, key)
		}
	}
	slices.Sort(unknown)
	skipped = append(skipped, unknown...)
	if len(set) > 0 {
		store.SetDefaults(set)
	}
	return seeded, skipped
}

func counterpartHeld(key string, maps ...map[string]any) bool {
	for _, pair := range exclusiveSessionPairs {
		for i, k := range pair {
			if k != key {
				continue
			}
			for _, m := range maps {
				if _, ok := m[pair[1-i]]; ok {
					return true
				}
			}
		}
	}
	return false
}

// Catalog returns every tool, sorted by name.
func Catalog(store domain.SessionStore) []*tool.Tool {
	all := []*tool.Tool{
		sessionSetDefaults(store),
		sessionClearDefaults(store),
		sessionShowDefaults(store),
		listSims(),
		bootSim(),
		launchAppSim(),
		stopAppSim(),
		installAppSim(),
		openURLSim(),
		buildSim(),
		testSim(),
		clean(),
		launchAppDevice(),
		tap(),
		typeText(),
		screenshot(),
	}
	slices.SortFunc(all, func(a, b *tool.Tool) int { return strings.Compare(a.Name, b.Name) })
	return all
}

// Register adds the catalog to reg, skipping tools named in disabled.
func Register(reg *tool.Registry, store domain.SessionStore, disabled []string) error {
	for _, t := range Catalog(store) {
		if slices.Contains(disabled, t.Name) {
			continue
		}
		if err := reg.Register(t); err != nil {
			return fmt.Errorf("register %s: %w", t.Name, err)
		}
	}
	return nil
}

// commandFailed renders a failed command as an error response.
func commandFailed(what string, res domain.CommandResult) domain.ToolResponse {
	detail := strings.TrimSpace(res.Error)
	if detail == "" {
		detail = strings.TrimSpace(res.Output)
	}
	msg := fmt.Sprintf("%s failed (exit code %d)", what, res.ExitCode)
	if detail != "" {
		msg += ":\n" + detail
	}
	return domain.ErrorResponse(msg)
}
