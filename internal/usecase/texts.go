package usecase

import (
	"fmt"
	"strings"

	"book-reader-bot/internal/domain"
)

// Button labels double as the commands the dispatcher recognises.
const (
	LabelStartReading    = "Начать чтение"
	LabelStartNewBook    = "Начать другую книгу"
	LabelContinueReading = "Продолжить чтение"
	LabelDefineWord      = "Дать определение"

	CommandStart = "/start"
)

const (
	textUploadAck       = "Книга '%s' успешно загружена! Нажмите '" + LabelStartReading + "'."
	textNewBookReady    = "Готово! Теперь вы можете отправить новую книгу."
	textFinished        = "Вы дочитали книгу до конца!"
	textReadingMenu     = "Продолжить чтение или посмотреть определение слова?"
	textAskWord         = "Пожалуйста, отправьте слово для его определения"
	textUnsupported     = "Пожалуйста, отправьте файл в формате TXT."
	textNoDocument      = "У вас нет текущей книги. Пожалуйста, отправьте текстовый файл."
	textDocumentMissing = "Книга не найдена. Пожалуйста, отправьте файл снова."
	textLookupFailed    = "Извините, я не смогу дать определение этому слову"
	textHint            = "Отправьте текстовый файл с книгой или воспользуйтесь кнопками меню."
)

func welcomeText() string {
	return strings.Join([]string{
		"Добро пожаловать в книжного бота! Я помогу вам читать книги по частям, " +
			"а также находить определения неизвестных английских слов и подбирать к ним синонимы.",
		"",
		"Отправьте мне текстовый файл с книгой, чтобы начать чтение.",
	}, "\n")
}

func startKeyboard() domain.Keyboard {
	return domain.Keyboard{{LabelStartReading, LabelStartNewBook}}
}

func uploadKeyboard() domain.Keyboard {
	return domain.Keyboard{{LabelStartReading}}
}

// readingKeyboard is offered after every chunk and every lookup.
func readingKeyboard() domain.Keyboard {
	return domain.Keyboard{{LabelContinueReading, LabelStartNewBook, LabelDefineWord}}
}

// FormatDefinition renders a lookup result. An empty synonym list renders as
// an empty string.
func FormatDefinition(d domain.Definition) string {
	return fmt.Sprintf("📖 %s\n\nОпределение: %s\nСинонимы: %s",
		d.Word,
		d.Definition,
		strings.Join(d.Synonyms, ", "),
	)
}

// noticeFor maps a user-facing error code to the message shown to the reader.
func noticeFor(code ErrorCode) (domain.OutboundMessage, bool) {
	switch code {
	case ErrorUnsupportedFormat:
		return domain.OutboundMessage{Text: textUnsupported}, true
	case ErrorNoActiveDocument:
		return domain.OutboundMessage{Text: textNoDocument}, true
	case ErrorDocumentNotFound:
		return domain.OutboundMessage{Text: textDocumentMissing, Keyboard: domain.Keyboard{{LabelStartNewBook}}}, true
	case ErrorLookupNotFound, ErrorInvalidInput:
		return domain.OutboundMessage{Text: textLookupFailed, Keyboard: readingKeyboard()}, true
	default:
		return domain.OutboundMessage{}, false
	}
}
