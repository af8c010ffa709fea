package reply

// Language is a supported locale tag.
type Language string

const (
	English Language = "eng"
	Russian Language = "rus"
)

const (
	navPrev     = "<"
	navNext     = ">"
	closingMark = ":)"
)

// texts holds every localized template for one language.
type texts struct {
	languageLabel string

	browse       string
	currentOrder string
	checkout     string
	exit         string
	backToMenu   string

	menuPrompt      string
	pagePrompt      string // current page, total pages
	itemDetail      string // name, price, description
	addToOrder      string
	itemAdded       string // name
	orderLine       string // name, price
	removeFromOrder string
	totalPrice      string // total
	itemRemoved     string // name
	invalidItem     string
	farewell        string
	purchased       string // total
	internalError   string
}

var locales = map[Language]texts{
	English: {
		languageLabel: "English",

		browse:       "Items to buy",
		currentOrder: "Current order",
		checkout:     "Checkout",
		exit:         "Exit",
		backToMenu:   "Back to menu",

		menuPrompt:      "Choose next action to proceed.",
		pagePrompt:      "Select item to view.\nCurrent page: %d/%d",
		itemDetail:      "%s\nPrice: %d\nDescription: %s",
		addToOrder:      "Add to order",
		itemAdded:       "Successfully added %s to order.",
		orderLine:       "%s\nPrice: %d",
		removeFromOrder: "Delete item from order",
		totalPrice:      "Total price: %d",
		itemRemoved:     "Successfully deleted %s from order.",
		invalidItem:     "Incorrect item.",
		farewell:        "See you next time!",
		purchased:       "Thank you for your purchase!\nTotal price: %d",
		internalError:   "Something went wrong. Please try again.",
	},
	Russian: {
		languageLabel: "Русский",

		browse:       "Предметы для покупки",
		currentOrder: "Текущий заказ",
		checkout:     "Оплатить",
		exit:         "Выход",
		backToMenu:   "Обратно в меню",

		menuPrompt:      "Выберите следующее действие чтобы продолжить.",
		pagePrompt:      "Выберите предмет для просмотра.\nТекущая страница: %d/%d",
		itemDetail:      "%s\nЦена: %d\nОписание: %s",
		addToOrder:      "Добавить в заказ",
		itemAdded:       "Успешно добавлен(а) %s в заказ.",
		orderLine:       "%s\nЦена: %d",
		removeFromOrder: "Удалить предмет из заказа",
		totalPrice:      "Общая стоимость: %d",
		itemRemoved:     "Успешно удален(а) %s из заказа.",
		invalidItem:     "Некорректный предмет.",
		farewell:        "До встречи!",
		purchased:       "Спасибо за покупку!\nОбщая стоимость: %d",
		internalError:   "Что-то пошло не так. Попробуйте ещё раз.",
	},
}

// languageOrder fixes the order of language choices on the start screen.
var languageOrder = []Language{English, Russian}

// Bilingual texts, shown before a language is chosen.
const (
	startText        = "Hello! Select language to continue.\nЗдравствуйте! Выберите язык, чтобы продолжить."
	invalidSession   = "Invalid session id. Please scan the QR code on your table again.\nНеверный идентификатор сессии. Отсканируйте QR-код на столе ещё раз."
	missingSession   = "Please scan the QR code on your table to start.\nОтсканируйте QR-код на столе, чтобы начать."
	languageRejected = "That doesn't work this way. Please scan the QR code again.\nТак не получится. Отсканируйте QR-код ещё раз."
	goodbye          = "See you next time!\nДо встречи!"
	internalError    = "Something went wrong. Please try again.\nЧто-то пошло не так. Попробуйте ещё раз."
)
