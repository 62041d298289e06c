package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeUnavailable   ErrorCode = "UPSTREAM_UNAVAILABLE"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is позволяет сравнивать ошибки через errors.Is по коду и сообщению,
// чтобы обёрнутые копии sentinel-ошибок оставались сопоставимыми.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if !errors.As(target, &appErr) {
		return false
	}
	return e.Code == appErr.Code && e.Message == appErr.Message
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeForbidden
}

func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeValidation
}

func IsConflict(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeConflict
}

// As извлекает *AppError из цепочки ошибок.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// HTTPStatus возвращает статус код для ошибки; 500 для неизвестных.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// Not found.
var (
	ErrOrderNotFound   = New(ErrCodeNotFound, "заказ не найден")
	ErrPaymentNotFound = New(ErrCodeNotFound, "платёж не найден")
	ErrDisputeNotFound = New(ErrCodeNotFound, "спор не найден")
	ErrGigNotFound     = New(ErrCodeNotFound, "гиг не найден")
	ErrUserNotFound    = New(ErrCodeNotFound, "пользователь не найден")

	ErrNotificationNotFound = New(ErrCodeNotFound, "уведомление не найдено")
)

// Авторизация. Сообщения нарочно общие — не раскрываем чужие сущности.
var (
	ErrUnauthorized       = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden          = New(ErrCodeForbidden, "недостаточно прав")
	ErrInvalidCredentials = New(ErrCodeUnauthorized, "неверные учетные данные")
	ErrNotAuthorized      = New(ErrCodeForbidden, "действие недоступно для этого пользователя")
	ErrNotAdmin           = New(ErrCodeForbidden, "действие доступно только администратору")
)

// Заказы.
var (
	ErrSelfOrderNotAllowed = New(ErrCodeValidation, "нельзя заказать собственный гиг")
	ErrInvalidDeliveryDate = New(ErrCodeValidation, "дата доставки должна быть в будущем")
	ErrGigUnavailable      = New(ErrCodeConflict, "гиг неактивен и недоступен для заказа")
	ErrNotCompleted        = New(ErrCodeConflict, "заказ ещё не завершён")
	ErrAlreadyRated        = New(ErrCodeConflict, "оценка по заказу уже выставлена")
)

// Платежи.
var (
	ErrNotOrderOwner       = New(ErrCodeForbidden, "платить за заказ может только его клиент")
	ErrAlreadyPaid         = New(ErrCodeConflict, "по заказу уже есть активный платёж")
	ErrPaymentNotSucceeded = New(ErrCodeConflict, "платёж не подтверждён процессором")
	ErrNotInEscrow         = New(ErrCodeConflict, "платёж не находится в escrow")
	ErrNotRefundable       = New(ErrCodeConflict, "платёж нельзя вернуть в текущем статусе")
)

// Споры.
var (
	ErrNotOrderParty      = New(ErrCodeForbidden, "спор может открыть только участник заказа")
	ErrDuplicateDispute   = New(ErrCodeConflict, "по заказу уже открыт спор")
	ErrOrderNotDisputable = New(ErrCodeConflict, "по отменённому заказу нельзя открыть спор")
	ErrNotDisputeParty    = New(ErrCodeForbidden, "доказательства может добавлять только участник спора")
	ErrAlreadyTerminal    = New(ErrCodeConflict, "спор уже разрешён или закрыт")
	ErrInvalidResolution  = New(ErrCodeValidation, "неизвестное решение по спору")
)

// ErrInvalidTransition — базовая ошибка недопустимого перехода; конкретные
// экземпляры строятся через InvalidTransition и распознаются errors.Is.
var ErrInvalidTransition = New(ErrCodeConflict, "недопустимый переход статуса")

// InvalidTransition строит ошибку недопустимого перехода статуса,
// называя текущий и запрошенный статусы.
func InvalidTransition(current, requested string) *AppError {
	return &AppError{
		Code:       ErrCodeConflict,
		Message:    fmt.Sprintf("недопустимый переход статуса: из %q в %q", current, requested),
		HTTPStatus: http.StatusConflict,
		Cause:      ErrInvalidTransition,
	}
}
