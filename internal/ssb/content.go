package ssb

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// FeedID identifies a feed ("@...ed25519").
type FeedID = string

// MsgID identifies a message ("%...sha256").
type MsgID = string

// Content is the content of a message.
type Content map[string]any

// Msg is a message appended to a feed.
type Msg struct {
	Key       MsgID   `json:"key"`
	Author    FeedID  `json:"author"`
	Sequence  int64   `json:"sequence"`
	Timestamp int64   `json:"timestamp"`
	Content   Content `json:"content"`
}

// ReqPublish is the only request type the app sends.
const ReqPublish = "publish"

// Req is emitted on the ssb bucket.
type Req struct {
	Type    string  `json:"type"`
	Content Content `json:"content"`
}

// ContentToPublishReq wraps content in a publish request.
func ContentToPublishReq(c Content) Req {
	return Req{Type: ReqPublish, Content: c}
}

// Reply is a reply being composed in a thread.
type Reply struct {
	Text   string
	Root   MsgID
	Fork   MsgID
	Branch MsgID
}

var hashtagRe = regexp.MustCompile(`(^|\s)(#[\p{L}\p{N}_-]+)`)

// NormalizeHashtag folds a hashtag to its canonical search form.
func NormalizeHashtag(tag string) string {
	return cases.Fold().String(norm.NFKC.String(tag))
}

// Hashtags returns the normalized hashtags mentioned in text, in order of
// first appearance.
func Hashtags(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range hashtagRe.FindAllStringSubmatch(text, -1) {
		tag := NormalizeHashtag(m[2])
		if !seen[tag] {
			seen[tag] = true
			out = append(out, tag)
		}
	}
	return out
}

// ToReplyPostContent builds the post content of a thread reply.
func ToReplyPostContent(r Reply) Content {
	c := Content{
		"type":   "post",
		"text":   strings.TrimSpace(r.Text),
		"root":   r.Root,
		"branch": r.Branch,
	}
	if r.Fork != "" {
		c["fork"] = r.Fork
	}
	if tags := Hashtags(r.Text); len(tags) > 0 {
		mentions := make([]any, len(tags))
		for i, tag := range tags {
			mentions[i] = map[string]any{"link": tag}
		}
		c["mentions"] = mentions
	}
	return c
}

// Reaction is a press on a reaction button. An empty Expression retracts
// the vote.
type Reaction struct {
	MsgKey     MsgID  `json:"msgKey" yaml:"msgKey"`
	Expression string `json:"expression,omitempty" yaml:"expression"`
}

// ToVoteContent builds the vote content of a reaction.
func ToVoteContent(r Reaction) Content {
	value := 1
	if r.Expression == "" {
		value = 0
	}
	vote := map[string]any{
		"link":  r.MsgKey,
		"value": value,
	}
	if r.Expression != "" {
		vote["expression"] = r.Expression
	}
	return Content{"type": "vote", "vote": vote}
}
