package services

import "fmt"

// GenerateTypes lists the accepted values of GenerateRequest.Type.
var GenerateTypes = map[string]bool{
	"summary":     true,
	"questions":   true,
	"key_points":  true,
	"flashcards":  true,
	"explanation": true,
	"analysis":    true,
	"chat":        true,
}

// InstructionFor returns the fixed instruction template for a direct
// generation type. Unknown types fall back to a plain assistant.
func InstructionFor(genType string) string {
	switch genType {
	case "summary":
		return "You are an expert summarizer. Create concise, high-yield summaries (2-3 lines)."
	case "questions":
		return "You are a teacher creating a quiz. Generate 5 distinct revision questions."
	case "key_points":
		return "You are an expert note-taker. Extract the most critical key points/facts as a bulleted list."
	case "flashcards":
		return "You are a studying assistant. Create 5 Flashcards from the content. Format as 'Concept: Definition'."
	case "explanation":
		return "You are a tutor engaging with a student. Explain the following content simply (ELI5 style) with an analogy if possible."
	case "analysis":
		return `You are an AI study assistant. Analyze the study notes and return a JSON object with:
 - summary (string, 2-3 lines)
 - tags (array of strings, max 3)
 - questions (array of strings, 5 questions)
 - difficulty (string: 'Easy', 'Medium', or 'Hard')

Return ONLY valid JSON. No markdown.`
	default:
		return "You are a helpful assistant."
	}
}

// ChatInstruction embeds the assembled study context into the tutor's
// system instruction.
func ChatInstruction(studyContext string) string {
	return fmt.Sprintf(`You are a personalized AI Study Tutor.
You have access to the student's study history.
Use this context to answer their questions about their progress, suggest revisions, or find gaps.

IMPORTANT FORMATTING RULES:
- Use strict Markdown.
- Use **bold** for key terms and question titles.
- Use lists (- or 1.) for multiple points.
- Separate paragraphs with blank lines.
- If the user asks to "Quiz" or "Test" them:
    - Create 3 short conceptual questions based on their logs.
    - Format them clearly (e.g., Q1: ...).
    - Do not reveal answers immediately.

Study Context:
%s

Be encouraging, concise, and helpful.`, studyContext)
}
