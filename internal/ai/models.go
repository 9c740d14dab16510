package ai

// Role is the author of a prompt message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Format is the response shape a prompt asks for.
type Format int

const (
	FormatText Format = iota
	// FormatJSON asks the provider for a single JSON object. Providers that
	// support a native JSON mode enable it; callers still validate the reply.
	FormatJSON
)

// Message is one role/content pair of a chat prompt.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Prompt is a provider-neutral chat request.
type Prompt struct {
	Messages    []Message
	Format      Format
	Temperature float32
}

// System returns the concatenated system messages.
func (p Prompt) System() string {
	return p.join(RoleSystem)
}

// User returns the concatenated user messages.
func (p Prompt) User() string {
	return p.join(RoleUser)
}

func (p Prompt) join(role Role) string {
	var out string
	for _, m := range p.Messages {
		if m.Role != role {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += m.Content
	}
	return out
}
