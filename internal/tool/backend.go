package tool

import "context"

// Backend executes tools on the remote tool server.
type Backend interface {
	// CallTool invokes a tool and returns its decoded JSON result.
	// identity is the caller's token and may be empty.
	CallTool(ctx context.Context, name string, args map[string]any, identity string) (any, error)
	// ReadResource returns the text of a documentation resource.
	ReadResource(ctx context.Context, uri string) (string, error)
}

type userTextKey struct{}

// WithUserText attaches the most recent user-authored text, used to look for
// an embedded report layout.
func WithUserText(ctx context.Context, text string) context.Context {
	return context.WithValue(ctx, userTextKey{}, text)
}

func UserText(ctx context.Context) string {
	if text, ok := ctx.Value(userTextKey{}).(string); ok {
		return text
	}
	return ""
}
