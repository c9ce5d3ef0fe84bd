package chatbot

import "github.com/kyokomi/emoji/v2"

func init() {
	// the library pads every replacement with a space by default
	emoji.ReplacePadding = ""
}

// ExpandEmoji replaces :shortcode: aliases (the gemoji set) with their
// Unicode form. Unknown aliases are left as typed.
func ExpandEmoji(text string) string {
	return emoji.Sprint(text)
}
