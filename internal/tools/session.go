package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"xcodemcp/internal/domain"
	"xcodemcp/internal/resolve"
	"xcodemcp/internal/schema"
	"xcodemcp/internal/tool"
)

func sessionSetDefaults(store domain.SessionStore) *tool.Tool {
	fields := make([]schema.Field, len(sessionFields))
	for i, f := range sessionFields {
		f.SessionBacked = false
		fields[i] = f
	}
	rules := make([]schema.Rule, 0, len(exclusiveSessionPairs))
	for _, pair := range exclusiveSessionPairs {
		rules = append(rules, schema.ExclusivePair(pair[0], pair[1]))
	}

	return tool.MustNew(resolve.DefaultSetDefaultsTool,
		"Set session defaults used by every other tool when an argument is omitted. Values merge into the existing defaults. Setting projectPath clears workspacePath (and vice versa); the same holds for simulatorId and simulatorName.",
		schema.MustNew(fields...), rules,
		func(ctx context.Context, p resolve.Params, _ domain.Executor) (domain.ToolResponse, error) {
			values := p.Map()
			if len(values) == 0 {
				return domain.ErrorResponse("No defaults provided. Pass at least one of: " + strings.Join(SessionKeys(), ", ")), nil
			}
			var drop []string
			for _, pair := range exclusiveSessionPairs {
				for i, key := range pair {
					if _, ok := values[key]; ok {
						drop = append(drop, pair[1-i])
					}
				}
			}
			dropped := store.Replace(values, drop)

			text := "Session defaults updated.\n" + renderDefaults(store.GetAll())
			if len(dropped) > 0 {
				text += "\nCleared: " + strings.Join(dropped, ", ")
			}
			return domain.ToolResponse{
				Content: []domain.ContentItem{domain.TextContent(text)},
				NextSteps: []domain.NextStep{
					{Tool: "session_show_defaults", Label: "Review stored defaults", Priority: 1},
				},
			}, nil
		})
}

func sessionClearDefaults(store domain.SessionStore) *tool.Tool {
	s := schema.MustNew(
		schema.Arg("keys", schema.ArrayOf(schema.Enum(SessionKeys()...)), "Keys to remove; omit to clear everything"),
	)
	return tool.MustNew("session_clear_defaults",
		"Clear session defaults. With keys, only those are removed.",
		s, nil,
		func(ctx context.Context, p resolve.Params, _ domain.Executor) (domain.ToolResponse, error) {
			keys := p.Strings("keys")
			if len(keys) == 0 {
				store.Clear()
				return domain.TextResponse("Session defaults cleared."), nil
			}
			store.Delete(keys...)
			return domain.TextResponse(fmt.Sprintf("Removed session defaults: %s\n%s", strings.Join(keys, ", "), renderDefaults(store.GetAll()))), nil
		})
}

func sessionShowDefaults(store domain.SessionStore) *tool.Tool {
	return tool.MustNew("session_show_defaults",
		"Show the current session defaults.",
		schema.MustNew(), nil,
		func(ctx context.Context, _ resolve.Params, _ domain.Executor) (domain.ToolResponse, error) {
			all := store.GetAll()
			if len(all) == 0 {
				return domain.ToolResponse{
					Content: []domain.ContentItem{domain.TextContent("No session defaults set.")},
					NextSteps: []domain.NextStep{
						{Tool: resolve.DefaultSetDefaultsTool, Label: "Store project, scheme and simulator defaults", Priority: 1},
					},
				}, nil
			}
			return domain.TextResponse(renderDefaults(all)), nil
		})
}

// renderDefaults prints the mapping as indented JSON with sorted keys.
func renderDefaults(values map[string]any) string {
	if len(values) == 0 {
		return "{}"
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Sprint(values)
	}
	return string(data)
}
