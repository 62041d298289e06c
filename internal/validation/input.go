package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Константы валидации
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30

	MinGigTitleLength       = 3
	MaxGigTitleLength       = 200
	MinGigDescriptionLength = 10
	MaxGigDescriptionLength = 5000

	MinRequirementsLength = 3
	MaxRequirementsLength = 5000

	MinMessageLength = 1
	MaxMessageLength = 5000

	MaxReasonLength      = 2000
	MaxDescriptionLength = 2000

	MaxTagLength  = 50
	MaxTagsCount  = 20
	MaxDeliveryDays = 365
)

// MaxPrice — верхняя граница цены гига.
var MaxPrice = decimal.NewFromInt(1_000_000)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.TrimSpace(email)
	email = strings.ToLower(email)

	if !strings.Contains(email, "@") {
		return fmt.Errorf("email должен содержать символ @")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}

	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	if !strings.Contains(domainPart, ".") {
		return fmt.Errorf("доменная часть email должна содержать точку")
	}

	localRegex := regexp.MustCompile(`^[a-z0-9._+-]+$`)
	if !localRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	domainRegex := regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	if !domainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateUsername проверяет имя пользователя.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("имя пользователя обязательно")
	}

	username = strings.TrimSpace(username)

	if err := ValidateLength("имя пользователя", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}

	usernameRegex := regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("имя пользователя может содержать только буквы, цифры и подчеркивание")
	}

	if len(username) > 0 && unicode.IsDigit(rune(username[0])) {
		return fmt.Errorf("имя пользователя не может начинаться с цифры")
	}

	return nil
}

// ValidateGigTitle проверяет заголовок гига.
func ValidateGigTitle(title string) error {
	if title == "" {
		return fmt.Errorf("заголовок гига обязателен")
	}
	return ValidateLength("заголовок гига", strings.TrimSpace(title), MinGigTitleLength, MaxGigTitleLength)
}

// ValidateGigDescription проверяет описание гига.
func ValidateGigDescription(description string) error {
	if description == "" {
		return fmt.Errorf("описание гига обязательно")
	}
	return ValidateLength("описание гига", strings.TrimSpace(description), MinGigDescriptionLength, MaxGigDescriptionLength)
}

// ValidatePrice проверяет цену гига.
func ValidatePrice(price decimal.Decimal) error {
	if price.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("цена должна быть больше нуля")
	}
	if price.GreaterThan(MaxPrice) {
		return fmt.Errorf("цена не может превышать %s", MaxPrice)
	}
	if price.Exponent() < -2 {
		return fmt.Errorf("цена указывается с точностью до цента")
	}
	return nil
}

// ValidateDeliveryDays проверяет срок выполнения гига.
func ValidateDeliveryDays(days int) error {
	if days < 1 {
		return fmt.Errorf("срок выполнения должен быть не менее одного дня")
	}
	if days > MaxDeliveryDays {
		return fmt.Errorf("срок выполнения не может превышать %d дней", MaxDeliveryDays)
	}
	return nil
}

// ValidateRequirements проверяет требования к заказу.
func ValidateRequirements(requirements string) error {
	if strings.TrimSpace(requirements) == "" {
		return fmt.Errorf("требования к заказу обязательны")
	}
	return ValidateLength("требования", strings.TrimSpace(requirements), MinRequirementsLength, MaxRequirementsLength)
}

// ValidateTags проверяет массив тегов гига.
func ValidateTags(tags []string) error {
	if len(tags) > MaxTagsCount {
		return fmt.Errorf("количество тегов не может превышать %d", MaxTagsCount)
	}

	seen := make(map[string]bool)
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return fmt.Errorf("тег не может быть пустым")
		}
		if utf8.RuneCountInString(tag) > MaxTagLength {
			return fmt.Errorf("тег не может быть длиннее %d символов", MaxTagLength)
		}
		tagLower := strings.ToLower(tag)
		if seen[tagLower] {
			return fmt.Errorf("тег '%s' указан дважды", tag)
		}
		seen[tagLower] = true
	}

	return nil
}

// ValidateMessageContent проверяет содержимое сообщения.
func ValidateMessageContent(content string) error {
	if content == "" {
		return fmt.Errorf("сообщение не может быть пустым")
	}
	return ValidateLength("сообщение", strings.TrimSpace(content), MinMessageLength, MaxMessageLength)
}

// ValidateReason проверяет причину спора или возврата.
func ValidateReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("причина обязательна")
	}
	return ValidateLength("причина", strings.TrimSpace(reason), 1, MaxReasonLength)
}

// ValidateRatingScore проверяет оценку заказа.
func ValidateRatingScore(score int) error {
	if score < 1 || score > 5 {
		return fmt.Errorf("оценка должна быть от 1 до 5")
	}
	return nil
}
