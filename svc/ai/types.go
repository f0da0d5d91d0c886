package ai

import (
	"time"

	"github.com/google/uuid"
)

// Type is the kind of content requested. The set is closed.
type Type string

const (
	TypePortfolioContent   Type = "PORTFOLIO_CONTENT"
	TypeProjectDescription Type = "PROJECT_DESCRIPTION"
	TypeAboutSection       Type = "ABOUT_SECTION"
	TypeSkillsSummary      Type = "SKILLS_SUMMARY"
	TypeSEOMeta            Type = "SEO_META"
	TypeImageAltText       Type = "IMAGE_ALT_TEXT"
)

var systemPrompts = map[Type]string{
	TypePortfolioContent:   "You are a professional portfolio writer. Create compelling, authentic content that showcases skills and experience.",
	TypeProjectDescription: "You are a technical writer. Create clear, impactful project descriptions that highlight technical achievements.",
	TypeAboutSection:       "You are a professional bio writer. Create engaging, authentic personal narratives.",
	TypeSkillsSummary:      "You are a career advisor. Create concise, impactful summaries of technical skills.",
	TypeSEOMeta:            "You are an SEO specialist. Create optimized metadata that improves search visibility.",
	TypeImageAltText:       "You are an accessibility expert. Create descriptive alt text for images.",
}

// SystemPrompt returns the instruction sent ahead of the user's prompt.
func (t Type) SystemPrompt() string {
	if p, ok := systemPrompts[t]; ok {
		return p
	}
	return "You are a helpful writing assistant."
}

// Generation is a stored completion.
type Generation struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Type       Type      `json:"type"`
	Prompt     string    `json:"prompt"`
	Content    string    `json:"content"`
	TokensUsed int64     `json:"tokens_used"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	CreatedAt  time.Time `json:"created_at"`
}
