package valueobject

// Статусы хранятся в базе и отдаются клиентам как есть — значения
// нельзя менять, это контракт с существующими данными и фронтендом.

// OrderStatus — статус заказа.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusInProgress OrderStatus = "in-progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusDisputed   OrderStatus = "disputed"
)

// orderTransitions — таблица допустимых переходов статуса заказа.
// Принудительный перевод в disputed при открытии спора идёт в обход
// таблицы (см. DisputeService.OpenDispute) — единственное исключение.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusInProgress, OrderStatusCancelled},
	OrderStatusInProgress: {OrderStatusCompleted, OrderStatusDisputed},
	OrderStatusCompleted:  {},
	OrderStatusCancelled:  {},
	OrderStatusDisputed:   {OrderStatusInProgress, OrderStatusCancelled},
}

func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// IsTerminal сообщает, запрещены ли дальнейшие переходы.
func (s OrderStatus) IsTerminal() bool {
	allowed, ok := orderTransitions[s]
	return ok && len(allowed) == 0
}

// CanTransitionTo проверяет допустимость перехода по таблице.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentStatus — статус escrow-платежа.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
	PaymentStatusDisputed   PaymentStatus = "disputed"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing, PaymentStatusFailed},
	PaymentStatusProcessing: {PaymentStatusCompleted, PaymentStatusRefunded, PaymentStatusDisputed},
	PaymentStatusCompleted:  {PaymentStatusRefunded},
	PaymentStatusDisputed:   {PaymentStatusProcessing, PaymentStatusCompleted, PaymentStatusRefunded},
	PaymentStatusFailed:     {},
	PaymentStatusRefunded:   {},
}

func (s PaymentStatus) IsValid() bool {
	_, ok := paymentTransitions[s]
	return ok
}

// IsActive сообщает, держит ли платёж заказ занятым: пока по заказу
// есть платёж в pending или processing, второй создать нельзя.
func (s PaymentStatus) IsActive() bool {
	return s == PaymentStatusPending || s == PaymentStatusProcessing
}

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusFailed || s == PaymentStatusRefunded
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// DisputeStatus — статус спора.
type DisputeStatus string

const (
	DisputeStatusOpen        DisputeStatus = "open"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusResolved    DisputeStatus = "resolved"
	DisputeStatusClosed      DisputeStatus = "closed"
)

var disputeTransitions = map[DisputeStatus][]DisputeStatus{
	DisputeStatusOpen:        {DisputeStatusUnderReview, DisputeStatusResolved, DisputeStatusClosed},
	DisputeStatusUnderReview: {DisputeStatusResolved, DisputeStatusClosed},
	DisputeStatusResolved:    {},
	DisputeStatusClosed:      {},
}

func (s DisputeStatus) IsValid() bool {
	_, ok := disputeTransitions[s]
	return ok
}

func (s DisputeStatus) IsTerminal() bool {
	return s == DisputeStatusResolved || s == DisputeStatusClosed
}

// IsActive сообщает, действует ли спор: по одному заказу может быть
// только один спор в состоянии open или under_review.
func (s DisputeStatus) IsActive() bool {
	return s == DisputeStatusOpen || s == DisputeStatusUnderReview
}

func (s DisputeStatus) CanTransitionTo(next DisputeStatus) bool {
	for _, allowed := range disputeTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// DisputeResolution — решение администратора по спору.
type DisputeResolution string

const (
	ResolutionRefundFull    DisputeResolution = "refund_full"
	ResolutionRefundPartial DisputeResolution = "refund_partial"
	ResolutionContinueWork  DisputeResolution = "continue_work"
	ResolutionRevision      DisputeResolution = "revision"
	ResolutionCancelled     DisputeResolution = "cancelled"
)

func (r DisputeResolution) IsValid() bool {
	switch r {
	case ResolutionRefundFull, ResolutionRefundPartial, ResolutionContinueWork,
		ResolutionRevision, ResolutionCancelled:
		return true
	}
	return false
}

// DisputeType — причина открытия спора.
type DisputeType string

const (
	DisputeTypeQuality       DisputeType = "quality"
	DisputeTypeDelivery      DisputeType = "delivery"
	DisputeTypeCommunication DisputeType = "communication"
	DisputeTypePayment       DisputeType = "payment"
	DisputeTypeOther         DisputeType = "other"
)

func (t DisputeType) IsValid() bool {
	switch t {
	case DisputeTypeQuality, DisputeTypeDelivery, DisputeTypeCommunication,
		DisputeTypePayment, DisputeTypeOther:
		return true
	}
	return false
}

// EvidenceType — тип доказательства в споре.
type EvidenceType string

const (
	EvidenceTypeMessage    EvidenceType = "message"
	EvidenceTypeFile       EvidenceType = "file"
	EvidenceTypeScreenshot EvidenceType = "screenshot"
	EvidenceTypeOther      EvidenceType = "other"
)

func (t EvidenceType) IsValid() bool {
	switch t {
	case EvidenceTypeMessage, EvidenceTypeFile, EvidenceTypeScreenshot, EvidenceTypeOther:
		return true
	}
	return false
}

// Роли пользователей.
const (
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
	RoleAdmin      = "admin"
)
