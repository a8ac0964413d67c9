package dialog

// Kind is the kind of dialog shown.
type Kind string

const (
	KindAlert  Kind = "alert"
	KindPrompt Kind = "prompt"
	KindPicker Kind = "picker"
)

// Action tags a dialog outcome.
type Action string

const (
	ActionPositive Action = "actionPositive"
	ActionNegative Action = "actionNegative"
	ActionSelect   Action = "actionSelect"
	ActionDismiss  Action = "actionDismiss"
)

// Item is a picker entry.
type Item struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

// Options tune how a dialog is presented. Buttons without text are hidden.
type Options struct {
	PositiveText  string `json:"positiveText,omitempty"`
	NegativeText  string `json:"negativeText,omitempty"`
	PositiveColor string `json:"positiveColor,omitempty"`
	NegativeColor string `json:"negativeColor,omitempty"`
	DefaultValue  string `json:"defaultValue,omitempty"`
	Items         []Item `json:"items,omitempty"`
}

// Request is a dialog waiting for the user.
type Request struct {
	ID      string  `json:"id"`
	Kind    Kind    `json:"kind"`
	Title   string  `json:"title,omitempty"`
	Content string  `json:"content,omitempty"`
	Options Options `json:"options"`
}

// Outcome is how a request was resolved. Text is set for a positive prompt,
// Selected for a picker selection.
type Outcome struct {
	Action   Action `json:"action"`
	Text     string `json:"text,omitempty"`
	Selected *Item  `json:"selectedItem,omitempty"`
}

// View is the render state of the bridge: Idle when Showing is false.
type View struct {
	Showing   bool     `json:"showing"`
	Request   *Request `json:"request,omitempty"`
	TextInput string   `json:"textInput,omitempty"`
}
