package chat

// MaxCaptionLength is the number of runes kept from a prompt caption.
const MaxCaptionLength = 50

// Prompt is a suggested prompt offered above the composer.
type Prompt struct {
	Caption string `json:"caption" yaml:"caption"`
	Prompt  string `json:"prompt" yaml:"prompt"`
}

func truncateCaption(caption string) string {
	r := []rune(caption)
	if len(r) <= MaxCaptionLength {
		return caption
	}
	return string(r[:MaxCaptionLength])
}

// SetSuggestedPrompts shows prompts. Captions are truncated to
// MaxCaptionLength runes.
func (s *Service) SetSuggestedPrompts(prompts []Prompt) {
	cp := make([]Prompt, len(prompts))
	for i, p := range prompts {
		p.Caption = truncateCaption(p.Caption)
		cp[i] = p
	}
	s.mu.Lock()
	s.prompts = cp
	s.promptsVisible = len(cp) > 0
	s.mu.Unlock()
	s.notify(ChangePrompts)
}

// HideSuggestedPrompts hides the prompts banner.
func (s *Service) HideSuggestedPrompts() {
	s.mu.Lock()
	changed := s.promptsVisible
	s.promptsVisible = false
	s.mu.Unlock()
	if changed {
		s.notify(ChangePrompts)
	}
}

// SuggestedPrompts returns the prompts while the banner is shown.
func (s *Service) SuggestedPrompts() []Prompt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.promptsVisible {
		return nil
	}
	out := make([]Prompt, len(s.prompts))
	copy(out, s.prompts)
	return out
}
