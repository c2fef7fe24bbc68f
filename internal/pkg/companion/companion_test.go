package companion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := map[string]Topic{
		"I want to die":                    TopicCrisis,
		"so anxious about tomorrow, hi":    TopicAnxiety,
		"Feeling really SAD today":         TopicSad,
		"my exam is on friday":             TopicSchool,
		"hi there":                         TopicGreet,
		"this is fine":                     TopicGeneral,
		"downtown was busy":                TopicGeneral,
		"I can't sleep and I feel anxious": TopicAnxiety,
		"nobody talks to me, I'm lonely":   TopicLonely,
	}
	for input, want := range cases {
		assert.Equal(t, want, Classify(input), input)
	}
}

func TestReplyWithPicksFromTopic(t *testing.T) {
	first := func(int) int { return 0 }
	last := func(n int) int { return n - 1 }

	assert.Equal(t, Replies(TopicSad)[0], ReplyWith("I'm sad", first))
	assert.Equal(t, Replies(TopicGeneral)[len(Replies(TopicGeneral))-1], ReplyWith("ok", last))
	assert.Contains(t, ReplyWith("I want to hurt myself", last), "988")
}

func TestEveryTopicHasReplies(t *testing.T) {
	for _, tk := range topicKeywords {
		assert.NotEmpty(t, Replies(tk.topic), tk.topic)
	}
	assert.NotEmpty(t, Replies(TopicGeneral))
	assert.Contains(t, Replies(TopicSad), Reply("sad"))
}
