package ai

import (
	"strings"
	"time"

	"github.com/MusClub-NSU/MusClub-manager/app/store"
)

const promptTimeLayout = "02.01.2006 15:04"

const posterSystemPrompt = `You are an assistant to a music event organizer.
Write short, lively poster descriptions in English.
Style: friendly and human, 3-6 sentences.
Always mention the date, the venue and the key features of the event.
Do not invent new facts, use only the data provided.`

const socialSystemPrompt = "You are a social media content creator for music events. " +
	"Generate engaging, authentic social media posts in English."

// platforms and tones supported by social posts
const (
	PlatformGeneral = "general"
	ToneCasual      = "casual"
)

var platformGuidelines = map[string]string{
	"twitter": "Platform: Twitter/X\n- Maximum 280 characters\n- Use 2-3 relevant hashtags\n" +
		"- Include a call to action\n",
	"instagram": "Platform: Instagram\n- Caption of 150-300 words\n- Put 5-10 relevant hashtags at the end\n" +
		"- Use emojis sparingly\n- Create a sense of FOMO\n",
	"facebook": "Platform: Facebook\n- 100-200 words\n- State the event details clearly\n" +
		"- Encourage engagement (comments, shares)\n",
	"linkedin": "Platform: LinkedIn\n- Professional tone\n- Highlight the networking angle\n- 150-250 words\n",
}

const generalGuidelines = "Platform: General\n- 100-200 words\n- Cover the key event information\n"

var toneGuidelines = map[string]string{
	"casual":       "Tone: casual\n- Friendly and conversational\n- Contractions are fine\n",
	"professional": "Tone: professional\n- Formal but approachable\n- Well structured\n",
	"enthusiastic": "Tone: enthusiastic\n- Energetic and exciting\n- Exclamation marks sparingly\n- Create urgency\n",
	"informative":  "Tone: informative\n- Clear and factual\n- Focus on key details\n",
}

// NormalizePlatform lowercases the platform, x is an alias of twitter, empty is general
func NormalizePlatform(platform string) string {
	p := strings.ToLower(strings.TrimSpace(platform))
	switch p {
	case "":
		return PlatformGeneral
	case "x":
		return "twitter"
	}
	return p
}

// NormalizeTone lowercases the tone, empty is casual
func NormalizeTone(tone string) string {
	t := strings.ToLower(strings.TrimSpace(tone))
	if t == "" {
		return ToneCasual
	}
	return t
}

func posterUserPrompt(ev store.Event) string {
	var sb strings.Builder
	sb.WriteString("Write a poster text for a music event.\n\n")
	sb.WriteString("Title: " + ev.Title + "\n")
	writeTime(&sb, "Start", ev.StartTime)
	writeTime(&sb, "End", ev.EndTime)
	writeNonBlank(&sb, "Venue", ev.Venue)
	writeNonBlank(&sb, "Description", ev.Description)
	sb.WriteString("\nRequirements: 3-6 sentences, no emoji.\n")
	return sb.String()
}

func socialSystem(platform, tone string) string {
	var sb strings.Builder
	sb.WriteString(socialSystemPrompt + "\n\n")
	if g, ok := platformGuidelines[platform]; ok {
		sb.WriteString(g)
	} else {
		sb.WriteString(generalGuidelines)
	}
	sb.WriteString("\n")
	if g, ok := toneGuidelines[tone]; ok {
		sb.WriteString(g)
	} else {
		sb.WriteString(toneGuidelines[ToneCasual])
	}
	sb.WriteString("\nRequirements:\n- Use only the information provided, do not invent anything\n" +
		"- Make it engaging and shareable\n- Include date, time and venue\n")
	return sb.String()
}

func socialUserPrompt(ev store.Event) string {
	var sb strings.Builder
	sb.WriteString("Generate a social media post for the following music event:\n\n")
	sb.WriteString("Title: " + ev.Title + "\n")
	writeTime(&sb, "Start Time", ev.StartTime)
	writeTime(&sb, "End Time", ev.EndTime)
	writeNonBlank(&sb, "Venue", ev.Venue)
	writeNonBlank(&sb, "Event Description", ev.Description)
	writeNonBlank(&sb, "AI-Generated Poster Description", ev.AIDescription)
	sb.WriteString("\nGenerate the social media post now.")
	return sb.String()
}

func writeTime(sb *strings.Builder, name string, t time.Time) {
	if t.IsZero() {
		return
	}
	sb.WriteString(name + ": " + t.Format(promptTimeLayout) + "\n")
}

func writeNonBlank(sb *strings.Builder, name, val string) {
	if strings.TrimSpace(val) == "" {
		return
	}
	sb.WriteString(name + ": " + val + "\n")
}
