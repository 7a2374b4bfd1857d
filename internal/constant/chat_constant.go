package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"

	NewChatTitle = "Chat Session"

	ChatSystemPrompt = "You are a helpful, academic assistant that translates academic language into plain English. If you don't know what something means, ask clarifying questions."

	ChatTemperature = 0.05
)

// Formats of the request appended to a message that quotes a highlight.
// The arguments are the quoted text, the document title, the authors and,
// for the first form, the summary.
const (
	ExplainWithSummaryPrompt = "Please explain the following text %s in a few sentences using extremely simple but precise terms within the context of a document entitled %s, written by %s with summary %s."
	ExplainPrompt            = "Please explain the following text %s in a few sentences using extremely simple but precise terms within the context of a document entitled %s, written by %s."
)
