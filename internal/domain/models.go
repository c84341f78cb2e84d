package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product товар каталога (цветы, букеты, подарки)
type Product struct {
	ID          int64           `json:"id" gorm:"primaryKey"`
	Name        string          `json:"name" gorm:"size:150;not null"`
	ImageURL    string          `json:"image_url" gorm:"size:512"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	FlowerType  *string         `json:"flower_type,omitempty" gorm:"size:100"`
	Stock       int64           `json:"stock" gorm:"default:0"`
	Category    string          `json:"category" gorm:"size:100"`
	Description string          `json:"description" gorm:"type:text"`
	ProductType string          `json:"product_type" gorm:"size:100"`
}

// CartItem позиция корзины, ключ (покупатель, товар)
type CartItem struct {
	CustomerID string    `json:"customer_id" gorm:"primaryKey;size:64"`
	ProductID  int64     `json:"product_id" gorm:"primaryKey;autoIncrement:false"`
	Quantity   int64     `json:"quantity" gorm:"not null"`
	Product    *Product  `json:"product,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time `json:"created_at"`
}

// DiscountType тип скидки
type DiscountType int

const (
	DiscountPercentageOff DiscountType = 0
	DiscountAmountOff     DiscountType = 1
)

func (t DiscountType) Valid() bool {
	return t == DiscountPercentageOff || t == DiscountAmountOff
}

// Discount код скидки с окном действия
type Discount struct {
	ID     int64           `json:"id" gorm:"primaryKey"`
	Code   string          `json:"code" gorm:"size:64;uniqueIndex;not null"`
	Type   DiscountType    `json:"type" gorm:"not null"`
	Amount decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	// nil means open-ended
	Begins *time.Time      `json:"begins,omitempty"`
	Ends   *time.Time      `json:"ends,omitempty"`
}

// PaymentType способ оплаты
type PaymentType int

const (
	PaymentCard           PaymentType = 0
	PaymentCashOnDelivery PaymentType = 1
)

func (t PaymentType) Valid() bool {
	return t == PaymentCard || t == PaymentCashOnDelivery
}

// Payment платёж, не меняется после создания
type Payment struct {
	ID              int64           `json:"id" gorm:"primaryKey"`
	BankAccount     *int64          `json:"bank_account,omitempty"`
	DeliveryAddress string          `json:"delivery_address" gorm:"size:255"`
	PaymentType     PaymentType     `json:"payment_type"`
	PayedAmount     decimal.Decimal `json:"payed_amount" gorm:"type:decimal(10,2);not null"`
	DiscountID      *int64          `json:"discount_id,omitempty"`
	Discount        *Discount       `json:"-" gorm:"foreignKey:DiscountID"`
	CreatedAt       time.Time       `json:"created_at"`
}

// OrderItem строка заказа с зафиксированной ценой
type OrderItem struct {
	ID        int64           `json:"id" gorm:"primaryKey"`
	OrderID   int64           `json:"order_id" gorm:"index;not null"`
	ProductID int64           `json:"product_id" gorm:"not null"`
	Quantity  int64           `json:"quantity" gorm:"not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:decimal(10,2);not null"`
}

// Order сущность заказа
type Order struct {
	ID               int64           `json:"id" gorm:"primaryKey"`
	DeliveryDate     *time.Time      `json:"delivery_date,omitempty"`
	PersonalMessage  string          `json:"personal_message" gorm:"type:text"`
	TotalAmountToPay decimal.Decimal `json:"total_amount_to_pay" gorm:"type:decimal(10,2);not null"`
	CustomerID       string          `json:"customer_id" gorm:"size:64;index;not null"`
	PaymentID        int64           `json:"payment_id" gorm:"not null"`
	Payment          *Payment        `json:"-" gorm:"foreignKey:PaymentID"`
	IsOrderSent      bool            `json:"is_order_sent" gorm:"default:false"`
	Rating           *int            `json:"rating"`
	Items            []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	CreatedAt        time.Time       `json:"created_at"`
}
