// Package chat implements the portal's canned-response assistant and the
// per-session message history behind it.
package chat

import (
	"fmt"
	"strings"
)

const (
	Greeting     = "Hello! I'm your AI Assistant. How can I help you today?"
	ClearedReply = "Chat cleared. How can I help you?"

	SecurityReply = `**Security Recommendation:**
1. Regularly update your software
2. Use strong, unique passwords
3. Enable two-factor authentication
4. Be cautious of suspicious emails
5. Backup your data regularly`

	ITReply = `**IT Support Tips:**
1. Prioritize high-priority tickets
2. Document all solutions
3. Communicate clearly with users
4. Follow up on unresolved issues
5. Maintain knowledge base`
)

type topic struct {
	keywords []string
	reply    string
}

// Checked in order; the first topic with a matching keyword answers.
var topics = []topic{
	{keywords: []string{"security", "cyber"}, reply: SecurityReply},
	{keywords: []string{"it", "ticket"}, reply: ITReply},
}

// Respond returns the canned reply for message. Keywords match as
// case-insensitive substrings, so "it" also fires inside longer words.
func Respond(message string) string {
	lower := strings.ToLower(message)
	for _, t := range topics {
		for _, kw := range t.keywords {
			if strings.Contains(lower, kw) {
				return t.reply
			}
		}
	}
	return fmt.Sprintf("I understand you're asking about '%s'. For detailed analysis, please consult the security or IT operations dashboards.", message)
}
