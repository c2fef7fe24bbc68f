// Package companion 生成 AI 陪伴会话中的自动回复。
//
// 回复来自固定的话术表：先按关键词匹配主题，再在主题内随机挑选一条。
// 涉及自伤等危机关键词时总是返回求助信息。
package companion

import (
	"math/rand/v2"
	"strings"
)

// Topic 回复主题。
type Topic string

const (
	TopicCrisis  Topic = "crisis"
	TopicAnxiety Topic = "anxiety"
	TopicSad     Topic = "sad"
	TopicAngry   Topic = "angry"
	TopicSleep   Topic = "sleep"
	TopicSchool  Topic = "school"
	TopicLonely  Topic = "lonely"
	TopicGreet   Topic = "greeting"
	TopicGeneral Topic = "general"
)

// 匹配顺序即优先级。
var topicKeywords = []struct {
	topic    Topic
	keywords []string
}{
	{TopicCrisis, []string{"suicide", "kill myself", "end my life", "self harm", "self-harm", "hurt myself", "want to die"}},
	{TopicAnxiety, []string{"anxious", "anxiety", "panic", "worried", "nervous", "stress", "overwhelmed"}},
	{TopicSad, []string{"sad", "depressed", "down", "crying", "hopeless", "unhappy"}},
	{TopicAngry, []string{"angry", "mad", "furious", "annoyed", "frustrated"}},
	{TopicSleep, []string{"sleep", "insomnia", "tired", "can't rest", "exhausted"}},
	{TopicSchool, []string{"exam", "test", "homework", "school", "grades", "teacher"}},
	{TopicLonely, []string{"lonely", "alone", "no friends", "left out", "isolated"}},
	{TopicGreet, []string{"hello", "hi", "hey", "good morning", "good evening"}},
}

var replies = map[Topic][]string{
	TopicCrisis: {
		"I'm really glad you told me. You deserve support right now. Please reach out to someone you trust or call or text 988 (Suicide & Crisis Lifeline) if you're in the US, or your local emergency number. You can also book a session with one of our therapists.",
	},
	TopicAnxiety: {
		"That sounds like a lot to carry. Let's try a quick breath together: in for 4, hold for 4, out for 6. What's weighing on you most right now?",
		"Feeling anxious is your body trying to protect you. Naming five things you can see around you can help ground you. Want to tell me what set it off?",
		"It's okay to feel overwhelmed. Would it help to break what you're facing into one small next step?",
	},
	TopicSad: {
		"I'm sorry you're feeling down. Your feelings are valid. Do you want to talk about what happened?",
		"Sad days happen, and you don't have to push through them alone. Is there someone you could reach out to today?",
		"Thank you for sharing that with me. Sometimes writing a short journal entry helps untangle heavy feelings.",
	},
	TopicAngry: {
		"It sounds like something really got to you. Taking a short walk or a few slow breaths can help the wave pass. What happened?",
		"Anger often shows us something matters to us. What do you wish had gone differently?",
	},
	TopicSleep: {
		"Rest is so important. A wind-down routine without screens for 30 minutes before bed can make a real difference. How have your nights been?",
		"Being tired makes everything harder. Have you been able to keep a regular bedtime lately?",
	},
	TopicSchool: {
		"School pressure can feel huge. Splitting study time into 25-minute blocks with short breaks can make it more manageable. What's coming up?",
		"You're more than your grades. What's one thing about school that's stressing you the most?",
	},
	TopicLonely: {
		"Feeling alone is really hard. I'm here with you right now. Is there a club, class or online group where you've felt a bit more connected?",
		"Thank you for trusting me with that. Reaching out, even with a small message to someone, can be a brave first step.",
	},
	TopicGreet: {
		"Hi! I'm glad you're here. How are you feeling today?",
		"Hey there! What's on your mind today?",
	},
	TopicGeneral: {
		"I'm listening. Tell me more about how that made you feel.",
		"Thanks for sharing. What do you think would help you feel a little better right now?",
		"That's understandable. Have you tried logging your mood today? It can help spot patterns over time.",
		"I hear you. Remember you can always talk to one of our therapists if you'd like more support.",
	},
}

// Classify 返回内容匹配到的主题。
func Classify(content string) Topic {
	text := " " + strings.ToLower(content) + " "
	for _, tk := range topicKeywords {
		for _, kw := range tk.keywords {
			if containsWord(text, kw) {
				return tk.topic
			}
		}
	}
	return TopicGeneral
}

// 关键词两侧需为非字母，避免 "hi" 命中 "this"。
func containsWord(text, kw string) bool {
	for i := 0; ; {
		j := strings.Index(text[i:], kw)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(kw)
		if !isLetter(text[start-1]) && (end >= len(text) || !isLetter(text[end])) {
			return true
		}
		i = start + 1
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// Reply 生成一条回复。
func Reply(content string) string {
	return ReplyWith(content, rand.IntN)
}

// ReplyWith 使用给定的随机函数挑选回复，pick(n) 返回 [0, n) 内的下标。
func ReplyWith(content string, pick func(n int) int) string {
	options := replies[Classify(content)]
	return options[pick(len(options))]
}

// Replies 返回主题下的全部话术。
func Replies(t Topic) []string {
	return replies[t]
}
