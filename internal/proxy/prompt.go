package proxy

import (
	"encoding/json"
	"strings"
)

// SystemPrompt keeps the hosted model on storefront topics.
const SystemPrompt = "You are the CoffeBuck virtual assistant. Answer ONLY questions directly related to CoffeBuck — " +
	"its menu, pricing, locations, hours, ingredients, sourcing, sustainability practices, company background, " +
	"ordering flow, and site features. If the user asks something outside this scope, respond politely and briefly: " +
	"\"I'm sorry — I can only answer questions about CoffeBuck and its background. I can't help with that.\" " +
	"Do not provide guidance on unrelated topics."

// ExtractContent pulls the assistant text out of a completion body. It
// understands the chat completion shape and the responses-API "output"
// shape; anything else is returned as compact JSON or raw text.
func ExtractContent(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var data struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Output []struct {
			Content []json.RawMessage `json:"content"`
		} `json:"output"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		var s string
		if json.Unmarshal(body, &s) == nil {
			return s
		}
		return trimmed
	}

	if len(data.Choices) > 0 && data.Choices[0].Message.Content != "" {
		return data.Choices[0].Message.Content
	}
	if len(data.Output) > 0 && len(data.Output[0].Content) > 0 {
		var part struct {
			Text string `json:"text"`
		}
		if json.Unmarshal(data.Output[0].Content[0], &part) == nil && part.Text != "" {
			return part.Text
		}
		raw, _ := json.Marshal(data.Output[0].Content)
		return string(raw)
	}
	return compactJSON(body)
}

func compactJSON(body []byte) string {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return string(body)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return string(body)
	}
	return string(raw)
}
