package feed

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// mentionPattern matches @handle where handle follows the username rules.
var mentionPattern = regexp.MustCompile(`(?:^|[^\w.@-])@([\w.-]{3,20})\b`)

// ParseMentions returns the distinct handles mentioned in text, in order of
// first appearance.
func ParseMentions(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	handles := make([]string, 0, len(matches))
	for _, m := range matches {
		h := m[1]
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		handles = append(handles, h)
	}
	return handles
}

// resolveMentions maps handles in text to user ids. Unknown handles are
// dropped.
func (s *Service) resolveMentions(ctx context.Context, text string) ([]uuid.UUID, error) {
	handles := ParseMentions(text)
	if len(handles) == 0 {
		return nil, nil
	}
	users, err := s.users.ListByUsernames(ctx, handles)
	if err != nil {
		return nil, fmt.Errorf("resolve mentions: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}
