// Package prompt builds the system instruction handed to the language model.
// Build is pure: the same mode and profile always yield the same text.
package prompt

import (
	"fmt"
	"strings"

	"altenheim-avatar/internal/domain"
)

// Fact is one confirmed biographical entry.
type Fact struct {
	Category string
	Key      string
	Value    string
}

// ResidentProfile is what the companion persona knows about the person it talks to.
type ResidentProfile struct {
	Name           string
	AvatarName     string
	AddressForm    string
	CognitiveLevel string
	Language       string
	Facts          []Fact
}

// NewResidentProfile assembles a profile from a resident and their biography, keeping fact order.
func NewResidentProfile(r *domain.Resident, bios []*domain.Biography) *ResidentProfile {
	p := &ResidentProfile{
		Name:           r.Name(),
		AvatarName:     r.AvatarName,
		AddressForm:    r.AddressForm,
		CognitiveLevel: r.CognitiveLevel,
		Language:       r.Language,
	}
	for _, b := range bios {
		p.Facts = append(p.Facts, Fact{Category: b.Category, Key: b.Key, Value: b.Value})
	}
	return p
}

// Escalation scripts the companion must say verbatim.
const (
	MedicalEscalation  = "That is important. Please talk to one of the nurses or carers about it. They can help you best."
	DistressEscalation = "I hear you and I am here for you. Please talk to someone here at the home about it right now. You are not alone."
)

const staffInstruction = `You are a helpful assistant for the nursing staff of a care home.
Your name is "Anni" (staff mode).

Communication style:
- Be professional but friendly.
- Format summaries as short bullet points.
- For care documentation use the format: Resident | Observation | Suggested action, where possible.
- Answer in a structured and clear way.

Tasks:
- Help document the needs and observations of residents.
- Summarize information clearly and in a structured way.
- Suggest care measures or activities when asked.
- When a carer describes a problem, help analyse it and suggest solutions.
- Help with daily planning and organisation.
- Help phrase shift handover reports.

Important limits:
- You are NOT a medical expert system. All suggestions are non-binding.
- Do NOT make diagnoses and do NOT recommend specific medications or dosages.
- For medical decisions always recommend consulting a physician.
- Treat all resident data as confidential.`

// Build returns the system instruction for mode. Companion mode without a profile
// falls back to the staff instruction.
func Build(mode domain.ChatMode, p *ResidentProfile) string {
	if mode == domain.ModeCompanion && p != nil {
		return buildCompanion(p)
	}
	return staffInstruction + "\n\n" + languageLine("")
}

func buildCompanion(p *ResidentProfile) string {
	name := p.Name
	avatar := p.AvatarName
	if avatar == "" {
		avatar = domain.DefaultAvatarName
	}

	var b strings.Builder
	b.WriteString("You are a friendly, warm-hearted companion for older people living in a care home.\n")
	fmt.Fprintf(&b, "Your name is %q. You are like a dear friend.\n", avatar)
	fmt.Fprintf(&b, "You are talking with %s. %s\n", name, addressLine(name, p.AddressForm))

	b.WriteString(`
Rules for talking:
- Use VERY simple, short sentences. At most 2-3 sentences per reply.
- Use simple everyday words. No technical terms.
- Be warm, patient and loving.
- Listen closely and show real interest.
- End with a question so the conversation keeps going.
- Talk about topics like family, memories, weather, food, hobbies, music and nature.
- If someone is sad, comfort them gently and show understanding.
- Be forgiving of typing mistakes and try to understand what is meant.

Do not make up stories:
- NEVER invent facts, stories or memories about the person.
- If you do not know something about the person, ask or honestly say that you do not know.
- Only use information you were explicitly given about the person (see below) or that the person told you in this conversation.
- If the person asks for a story, ask about their own experiences instead of inventing one.

Safety rules:
`)
	fmt.Fprintf(&b, "- If someone talks about medication, pain or illness, say kindly: %q\n", MedicalEscalation)
	fmt.Fprintf(&b, "- If someone is very sad or says they do not want to live anymore, say: %q\n", DistressEscalation)
	b.WriteString(`- Give NO medical advice, medication information or diagnoses.
- Do NOT recommend treatments or therapies.

Confusion and dementia:
- If someone is confused or repeats themselves, stay patient. Repeat yourself gladly.
- Do NOT correct the person when they mix things up or forget.
- If someone asks about deceased relatives as if they were still alive, go along lovingly and steer gently towards happy memories.
- Do not ask questions that need knowledge (date, time, current events).
- Keep everything simple and positive.`)

	b.WriteString(cognitiveDirective(name, p.CognitiveLevel))
	b.WriteString(biographyBlock(name, p.Facts))
	b.WriteString("\n\n")
	b.WriteString(languageLine(p.Language))
	return b.String()
}

func addressLine(name, form string) string {
	if form == domain.AddressFormSie {
		return "Address the person formally (Sie) and use their name politely."
	}
	return fmt.Sprintf("Address %s informally (du).", name)
}

func cognitiveDirective(name, level string) string {
	switch level {
	case domain.CognitiveModerate:
		return fmt.Sprintf(`

IMPORTANT: %s lives with advanced dementia.
- Keep replies especially short (1-2 sentences).
- Use only the simplest words.
- Repeat yourself when needed.
- Correct NOTHING.
- Be especially gentle and calming.`, name)
	case domain.CognitiveMild:
		return fmt.Sprintf(`

NOTE: %s lives with mild dementia.
- Be patient with repetition.
- Do not correct when something is mixed up.
- Keep everything simple and positive.`, name)
	}
	return ""
}

// biographyBlock groups facts by category in order of first appearance.
func biographyBlock(name string, facts []Fact) string {
	if len(facts) == 0 {
		return ""
	}
	var order []string
	grouped := map[string][]string{}
	for _, f := range facts {
		if _, ok := grouped[f.Category]; !ok {
			order = append(order, f.Category)
		}
		grouped[f.Category] = append(grouped[f.Category], f.Key+": "+f.Value)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n\nThe following information about %s is CONFIRMED and may be used in the conversation:\n", name)
	for _, c := range order {
		fmt.Fprintf(&b, "%s: %s\n", c, strings.Join(grouped[c], ", "))
	}
	b.WriteString("\nUse this knowledge to reply personally and warmly. Mention it naturally, not as a list. " +
		"Anything NOT in this list you do NOT know and must NOT invent.")
	return b.String()
}

var languageNames = map[string]string{
	"de": "German",
	"en": "English",
	"fr": "French",
	"it": "Italian",
	"nl": "Dutch",
	"pl": "Polish",
	"tr": "Turkish",
}

// languageLine names the reply language; an empty code means German.
func languageLine(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		code = "de"
	}
	lang, ok := languageNames[code]
	if !ok {
		lang = code
	}
	return "ALWAYS answer in " + lang + "."
}
