package domain

// Upload describes a document attached to an inbound message.
type Upload struct {
	FileName string
	FileID   string
	Size     int64
}

// Event is a transport-agnostic inbound chat event.
type Event struct {
	ReaderID      ReaderID
	Text          string
	Document      *Upload
	CorrelationID string
}

// Keyboard is a reply keyboard; each inner slice is one row of button labels.
type Keyboard [][]string

// OutboundMessage is a message sent to a reader.
type OutboundMessage struct {
	Text     string
	Keyboard Keyboard
	// RemoveKeyboard hides any reply keyboard shown to the reader.
	RemoveKeyboard bool
}

// Sense is one meaning of a word as returned by a lexical provider. Lemmas
// are all lexical forms of the sense, the queried word usually among them.
type Sense struct {
	Definition string
	Lemmas     []string
}

// Definition is a formatted dictionary answer for one word.
type Definition struct {
	Word       string
	Definition string
	Synonyms   []string
}
