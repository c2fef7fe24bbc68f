package domain

import (
	"math/rand/v2"

	"github.com/masoommulla/project-sub001/internal/model"
)

var suggestionTable = map[string][]model.Suggestion{
	model.MoodHappy: {
		{Type: "gratitude", Title: "Write down three good things", Description: "Capture what made today feel good so you can come back to it later.", Icon: "📝"},
		{Type: "social", Title: "Share the good vibes", Description: "Send a message to a friend and tell them something you appreciate about them.", Icon: "💬"},
		{Type: "activity", Title: "Keep the momentum", Description: "Use this energy for a hobby or a small goal you have been putting off.", Icon: "🎯"},
		{Type: "mindfulness", Title: "Savor the moment", Description: "Pause for one minute and notice what happiness feels like in your body.", Icon: "🌟"},
	},
	model.MoodExcited: {
		{Type: "activity", Title: "Channel your energy", Description: "Go for a run, dance to a favorite song, or start a creative project.", Icon: "⚡"},
		{Type: "planning", Title: "Plan your next step", Description: "Write down what you are excited about and one action to move it forward.", Icon: "🗺️"},
		{Type: "social", Title: "Celebrate with someone", Description: "Share your news with someone who will be happy for you.", Icon: "🎉"},
		{Type: "mindfulness", Title: "Ground yourself", Description: "Take five slow breaths so the excitement stays fun and not overwhelming.", Icon: "🌬️"},
	},
	model.MoodCalm: {
		{Type: "mindfulness", Title: "Short meditation", Description: "Try a five minute guided meditation to deepen the calm.", Icon: "🧘"},
		{Type: "reflection", Title: "Journal your thoughts", Description: "Calm moments are great for reflecting on the week.", Icon: "📓"},
		{Type: "activity", Title: "Read something you enjoy", Description: "Spend some quiet time with a book or an article you like.", Icon: "📚"},
		{Type: "nature", Title: "Step outside", Description: "A slow walk outdoors can help you hold on to this feeling.", Icon: "🌿"},
	},
	model.MoodOkay: {
		{Type: "activity", Title: "Take a short walk", Description: "Ten minutes of movement can lift an ordinary day.", Icon: "🚶"},
		{Type: "self-care", Title: "Drink some water", Description: "Check in with your body: hydrate and have a healthy snack.", Icon: "💧"},
		{Type: "social", Title: "Reach out", Description: "Say hi to a friend or family member you have not talked to in a while.", Icon: "👋"},
		{Type: "creative", Title: "Try something new", Description: "Listen to a new song, draw, or cook something simple.", Icon: "🎨"},
	},
	model.MoodSad: {
		{Type: "social", Title: "Talk to someone you trust", Description: "Sharing how you feel with a friend, parent, or counselor can make it lighter.", Icon: "🤝"},
		{Type: "self-care", Title: "Be gentle with yourself", Description: "Wrap up in a blanket, rest, and do something comforting.", Icon: "🫶"},
		{Type: "activity", Title: "Listen to uplifting music", Description: "Put on a playlist that usually makes you feel a little better.", Icon: "🎵"},
		{Type: "reflection", Title: "Write it out", Description: "Journaling about what is making you sad can help you understand it.", Icon: "✍️"},
	},
	model.MoodAnxious: {
		{Type: "breathing", Title: "Box breathing", Description: "Breathe in for 4, hold for 4, out for 4, hold for 4. Repeat four times.", Icon: "🌬️"},
		{Type: "grounding", Title: "5-4-3-2-1 grounding", Description: "Name 5 things you see, 4 you feel, 3 you hear, 2 you smell, 1 you taste.", Icon: "🖐️"},
		{Type: "reflection", Title: "Write down your worries", Description: "Put each worry on paper and note one thing you can control.", Icon: "📝"},
		{Type: "activity", Title: "Move your body", Description: "Stretch or walk for a few minutes to release tension.", Icon: "🤸"},
	},
	model.MoodAngry: {
		{Type: "breathing", Title: "Cool down breathing", Description: "Take ten slow, deep breaths before reacting.", Icon: "❄️"},
		{Type: "activity", Title: "Release the energy", Description: "Do some jumping jacks, go for a run, or squeeze a stress ball.", Icon: "🏃"},
		{Type: "reflection", Title: "Name the feeling", Description: "Write what triggered your anger and what you need right now.", Icon: "🗒️"},
		{Type: "space", Title: "Take a break", Description: "Step away from the situation for a few minutes until you feel calmer.", Icon: "🚪"},
	},
}

// SuggestionsFor 返回某心情的全部候选建议，未知心情回退到 okay。
func SuggestionsFor(mood string) []model.Suggestion {
	if list, ok := suggestionTable[mood]; ok {
		return list
	}
	return suggestionTable[model.MoodOkay]
}

// Suggest 从候选建议中均匀随机选择一条。
func Suggest(mood string) model.Suggestion {
	return SuggestWith(mood, rand.IntN)
}

// SuggestWith 使用给定的随机函数选择建议，pick(n) 需返回 [0, n) 内的整数。
func SuggestWith(mood string, pick func(n int) int) model.Suggestion {
	list := SuggestionsFor(mood)
	return list[pick(len(list))]
}
