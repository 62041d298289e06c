// Package processor содержит клиент платёжного процессора. Деньги
// держит процессор, у нас только ссылки на его объекты: intent при
// инициации, charge после подтверждения, refund при возврате.
package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/gigmarket-backend/internal/pkg/apperror"
)

// Gateway — граница с платёжным процессором. Сервис эскроу работает
// только через этот интерфейс, в тестах подставляется фейк.
type Gateway interface {
	CreateIntent(ctx context.Context, in CreateIntentInput) (*Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*Intent, error)
	CreateRefund(ctx context.Context, in CreateRefundInput) (*Refund, error)
}

// CreateIntentInput — параметры создания intent. Сумма указывается в
// валюте платежа с двумя знаками, метаданные связывают intent с заказом.
type CreateIntentInput struct {
	Amount         decimal.Decimal   `json:"amount"`
	Currency       string            `json:"currency"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	IdempotencyKey string            `json:"-"`
}

// Intent — объект намерения платежа на стороне процессора.
type Intent struct {
	ID           string          `json:"id"`
	ClientSecret string          `json:"client_secret"`
	Status       string          `json:"status"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	ChargeID     string          `json:"charge_id,omitempty"`
}

// Succeeded сообщает, что платёж по intent прошёл.
func (i *Intent) Succeeded() bool {
	return i.Status == "succeeded"
}

// CreateRefundInput — параметры возврата. Amount пустой — полный возврат.
type CreateRefundInput struct {
	ChargeID       string          `json:"charge_id"`
	Amount         decimal.Decimal `json:"amount,omitempty"`
	Reason         string          `json:"reason,omitempty"`
	IdempotencyKey string          `json:"-"`
}

// Refund — объект возврата на стороне процессора.
type Refund struct {
	ID       string          `json:"id"`
	Status   string          `json:"status"`
	Amount   decimal.Decimal `json:"amount"`
	ChargeID string          `json:"charge_id"`
}

// Client — HTTP-клиент процессора с ретраями на сетевые ошибки и 5xx.
// Мутирующие вызовы передают Idempotency-Key, поэтому повтор запроса
// после обрыва соединения не создаёт второй объект.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logrus.Entry
}

// NewClient создаёт клиент процессора по указанному адресу.
func NewClient(baseURL, apiKey string, log *logrus.Entry) *Client {
	retry := retryablehttp.NewClient()
	retry.RetryMax = 3
	retry.RetryWaitMin = 200 * time.Millisecond
	retry.RetryWaitMax = 2 * time.Second
	retry.HTTPClient.Timeout = 10 * time.Second
	retry.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: retry.StandardClient(),
		log:        log,
	}
}

// CreateIntent создаёт intent на полную сумму списания (цена + комиссия).
func (c *Client) CreateIntent(ctx context.Context, in CreateIntentInput) (*Intent, error) {
	var intent Intent
	if err := c.do(ctx, http.MethodPost, "/v1/intents", in, in.IdempotencyKey, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// RetrieveIntent возвращает актуальное состояние intent.
func (c *Client) RetrieveIntent(ctx context.Context, intentID string) (*Intent, error) {
	var intent Intent
	if err := c.do(ctx, http.MethodGet, "/v1/intents/"+intentID, nil, "", &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// CreateRefund проводит возврат по charge.
func (c *Client) CreateRefund(ctx context.Context, in CreateRefundInput) (*Refund, error) {
	var refund Refund
	if err := c.do(ctx, http.MethodPost, "/v1/refunds", in, in.IdempotencyKey, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

type processorError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, idempotencyKey string, out interface{}) error {
	if c == nil || c.baseURL == "" {
		return apperror.New(apperror.ErrCodeUnavailable, "платёжный процессор не настроен")
	}

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("processor: marshal request %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("processor: create request %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WithError(err).WithField("path", path).Warn("запрос к процессору не прошёл")
		return apperror.Wrap(err, apperror.ErrCodeUnavailable, "платёжный процессор недоступен")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var perr processorError
		_ = json.NewDecoder(resp.Body).Decode(&perr)
		c.log.WithFields(logrus.Fields{
			"path":   path,
			"status": resp.StatusCode,
			"code":   perr.Error.Code,
		}).Warn("процессор вернул ошибку")

		if resp.StatusCode >= http.StatusInternalServerError {
			return apperror.New(apperror.ErrCodeUnavailable, "платёжный процессор недоступен")
		}
		msg := perr.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("процессор отклонил запрос: %d", resp.StatusCode)
		}
		return apperror.New(apperror.ErrCodeValidation, msg)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("processor: decode response %w", err)
		}
	}
	return nil
}
