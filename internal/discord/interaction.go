package discord

import "time"

// Permission bits, mirroring the platform's values.
const (
	PermissionKickMembers     int64 = 1 << 1
	PermissionBanMembers      int64 = 1 << 2
	PermissionAdministrator   int64 = 1 << 3
	PermissionManageGuild     int64 = 1 << 5
	PermissionViewChannel     int64 = 1 << 10
	PermissionSendMessages    int64 = 1 << 11
	PermissionManageMessages  int64 = 1 << 13
	PermissionVoiceConnect    int64 = 1 << 20
	PermissionVoiceSpeak      int64 = 1 << 21
	PermissionModerateMembers int64 = 1 << 40
)

type InteractionKind int

const (
	InteractionCommand InteractionKind = iota + 1
	InteractionComponent
	InteractionModalSubmit
)

func (k InteractionKind) String() string {
	switch k {
	case InteractionCommand:
		return "command"
	case InteractionComponent:
		return "component"
	case InteractionModalSubmit:
		return "modal"
	default:
		return "unknown"
	}
}

type Interaction struct {
	Kind      InteractionKind
	ID        string
	GuildID   string
	ChannelID string
	User      UserInfo
	// MemberPermissions is zero outside guilds.
	MemberPermissions int64
	CreatedAt         time.Time

	CommandName string
	Options     map[string]string

	CustomID string
	// MessageID is the message a component belongs to.
	MessageID string
	Fields    map[string]string

	Responder Responder
}

func (i Interaction) Option(name string) string {
	if i.Options == nil {
		return ""
	}
	return i.Options[name]
}

func (i Interaction) Field(name string) string {
	if i.Fields == nil {
		return ""
	}
	return i.Fields[name]
}

func (i Interaction) HasPermission(bit int64) bool {
	return i.MemberPermissions&PermissionAdministrator != 0 || i.MemberPermissions&bit != 0
}

// Responder answers one interaction. Reply or a Defer must come first;
// later messages go through EditReply or FollowUp.
type Responder interface {
	Reply(msg MessagePayload, ephemeral bool) error
	Defer(ephemeral bool) error
	DeferUpdate() error
	UpdateMessage(msg MessagePayload) error
	EditReply(msg MessagePayload) error
	FollowUp(msg MessagePayload, ephemeral bool) error
	ShowModal(modal Modal) error
	DeleteReply() error
	Acknowledged() bool
}

type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota + 1
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
	ButtonLink
)

type Button struct {
	CustomID string
	Label    string
	Emoji    string
	Style    ButtonStyle
	URL      string
	Disabled bool
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

type Embed struct {
	Title       string
	Description string
	URL         string
	Color       int
	Thumbnail   string
	AuthorName  string
	AuthorIcon  string
	Footer      string
	Fields      []EmbedField
	Timestamp   time.Time
}

// MessagePayload describes message content. On edits nil Embeds and nil
// Components keep the current ones; ClearContent blanks the text.
type MessagePayload struct {
	Content      string
	ClearContent bool
	Embeds       []Embed
	Components   [][]Button
}

func Text(content string) MessagePayload {
	return MessagePayload{Content: content}
}

type TextInput struct {
	CustomID    string
	Label       string
	Placeholder string
	Paragraph   bool
	Required    bool
	MaxLength   int
}

type Modal struct {
	CustomID string
	Title    string
	Inputs   []TextInput
}
