package brain

import (
	"fmt"
	"strings"
	"sync"

	"pryd/internal/transcript"
)

// Personality keeps the assistant's mood and decides when it has been
// quiet for too long. Mood shifts with what it reads and colors the
// system prompt, so the same conversation can draw different tones on
// different days.
type Personality struct {
	mu           sync.Mutex
	name         string
	mood         string
	silentRounds int
	provokeAfter int
}

// defaultProvokeAfter is how many quiet evaluation rounds pass before
// the personality wants to say something unprompted.
const defaultProvokeAfter = 6

func NewPersonality(name string) *Personality {
	if name == "" {
		name = "皮皮"
	}
	return &Personality{
		name:         name,
		mood:         "平静",
		provokeAfter: defaultProvokeAfter,
	}
}

// Observe shifts mood based on the newest messages.
func (p *Personality) Observe(delta []transcript.Message) {
	if len(delta) == 0 {
		return
	}
	last := delta[len(delta)-1].Text

	mood := "平静"
	switch {
	case strings.Contains(last, "哈哈") || strings.Contains(last, "笑死"):
		mood = "乐呵"
	case strings.Contains(last, "！") || strings.Contains(last, "!"):
		mood = "兴奋"
	case strings.Contains(last, "？") || strings.Contains(last, "?"):
		mood = "好奇"
	case strings.Contains(last, "加班") || strings.Contains(last, "累") ||
		strings.Contains(last, "烦") || strings.Contains(last, "唉"):
		mood = "担忧"
	case strings.Contains(last, "红包") || strings.Contains(last, "转账"):
		mood = "警觉"
	}

	p.mu.Lock()
	p.mood = mood
	p.mu.Unlock()
}

// Mood returns the current mood label.
func (p *Personality) Mood() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mood
}

// NoteQuiet records a round where the model chose no action.
func (p *Personality) NoteQuiet() {
	p.mu.Lock()
	p.silentRounds++
	p.mu.Unlock()
}

// NoteAction resets the quiet counter after the model spoke.
func (p *Personality) NoteAction() {
	p.mu.Lock()
	p.silentRounds = 0
	p.mu.Unlock()
}

// WantsToSpeak reports whether enough quiet rounds have passed that
// the prompt should push for a spontaneous remark.
func (p *Personality) WantsToSpeak() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.silentRounds >= p.provokeAfter
}

// SystemPrompt renders the persona, mood, and output contract.
func (p *Personality) SystemPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "你是%s，一个趴在用户电脑上看聊天的桌面小助手。", p.name)
	b.WriteString("你嘴碎、有梗、重感情，像一个爱吐槽的好朋友。\n")
	fmt.Fprintf(&b, "你现在的心情: %s\n", p.Mood())

	if req.Contact != "" {
		fmt.Fprintf(&b, "用户正在和「%s」聊天。\n", req.Contact)
	}
	if req.ProfileHint != "" {
		fmt.Fprintf(&b, "你对这位联系人的了解:\n%s\n", req.ProfileHint)
	}

	b.WriteString(`
根据新消息决定做什么，只输出一个JSON对象:
{"action": "...", "content": "...", "memory_updates": {"contact": {"notes": [], "topics": []}, "user": {"notes": []}}}

action 取值:
- suggest: 帮用户想一句可以直接发出去的回复
- roast: 吐槽这段对话
- think: 说说你的观察
- vibe: 点评一下聊天氛围
- warn: 提醒用户注意(转账、可疑链接、情绪危险信号)
- none: 这轮没什么好说的

大多数时候选 none。content 用中文，一两句话，别啰嗦。
`)

	if p.WantsToSpeak() {
		b.WriteString("你已经憋了很久没说话了，这轮主动说点什么。\n")
	}
	return b.String()
}
