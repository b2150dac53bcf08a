package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	"github.com/shopspring/decimal"
)

// User is the authenticated account returned by the auth endpoints.
type User struct {
	ID        string     `json:"id" validate:"required"`
	FirstName string     `json:"firstName,omitempty"`
	LastName  string     `json:"lastName,omitempty"`
	Name      string     `json:"name,omitempty"`
	Email     string     `json:"email" validate:"required"`
	Role      enums.Role `json:"role" validate:"required"`
	IsVIP     bool       `json:"isVIP,omitempty"`
}

// UnmarshalJSON accepts both `id` and the document-store `_id` identifier.
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	var raw struct {
		alias
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = User(raw.alias)
	if u.ID == "" {
		u.ID = raw.MongoID
	}
	if u.Role == "" {
		u.Role = enums.RoleCustomer
	}
	return nil
}

// DisplayName prefers the full name and falls back to first/last name.
func (u User) DisplayName() string {
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// AuthPayload is the top-level login/register/google response body.
type AuthPayload struct {
	Token        string `json:"token" validate:"required"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         *User  `json:"user" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone,omitempty"`
}

type GoogleLoginRequest struct {
	Credential string `json:"credential"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

// Variant is one selectable axis of a product, e.g. size or color.
type Variant struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

// Product is a catalog entry. Prices are in the base currency.
type Product struct {
	ID            string           `json:"id" validate:"required"`
	Name          string           `json:"name" validate:"required"`
	Description   string           `json:"description,omitempty"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	Images        []string         `json:"images,omitempty"`
	Category      string           `json:"category,omitempty"`
	VendorID      string           `json:"vendor,omitempty"`
	Stock         int              `json:"stock"`
	Variants      []Variant        `json:"variants,omitempty"`
}

// UnmarshalJSON accepts `_id` identifiers and vendor/category references that
// arrive either as ids or as populated documents.
func (p *Product) UnmarshalJSON(data []byte) error {
	type alias Product
	var raw struct {
		alias
		MongoID  string          `json:"_id"`
		Vendor   json.RawMessage `json:"vendor"`
		Category json.RawMessage `json:"category"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Product(raw.alias)
	if p.ID == "" {
		p.ID = raw.MongoID
	}
	p.VendorID = referenceID(raw.Vendor)
	p.Category = referenceID(raw.Category)
	return nil
}

// ImageURL returns the first product image, if any.
func (p Product) ImageURL() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type ProductList struct {
	Products   []Product  `json:"products" validate:"dive"`
	Pagination Pagination `json:"pagination"`
}

// ProductFilter holds the optional catalog query filters.
type ProductFilter struct {
	Search   string
	Category string
	Vendor   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
	Page     int
	Limit    int
}

// Query encodes the non-empty filters.
func (f ProductFilter) Query() url.Values {
	q := url.Values{}
	setIf := func(key, value string) {
		if strings.TrimSpace(value) != "" {
			q.Set(key, strings.TrimSpace(value))
		}
	}
	setIf("search", f.Search)
	setIf("category", f.Category)
	setIf("vendor", f.Vendor)
	setIf("sort", f.Sort)
	if f.MinPrice != nil {
		q.Set("minPrice", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		q.Set("maxPrice", f.MaxPrice.String())
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}

type Category struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Slug  string `json:"slug,omitempty"`
	Image string `json:"image,omitempty"`
}

func (c *Category) UnmarshalJSON(data []byte) error {
	type alias Category
	var raw struct {
		alias
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Category(raw.alias)
	if c.ID == "" {
		c.ID = raw.MongoID
	}
	return nil
}

// Announcement is a banner message shown across the storefront.
type Announcement struct {
	ID        string     `json:"id" validate:"required"`
	Title     string     `json:"title"`
	Content   string     `json:"content" validate:"required"`
	Type      string     `json:"type,omitempty"`
	IsActive  bool       `json:"isActive"`
	Priority  int        `json:"priority"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

func (a *Announcement) UnmarshalJSON(data []byte) error {
	type alias Announcement
	var raw struct {
		alias
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = Announcement(raw.alias)
	if a.ID == "" {
		a.ID = raw.MongoID
	}
	return nil
}

// AnnouncementInput is the admin create/update body.
type AnnouncementInput struct {
	Title     string     `json:"title" validate:"required,max=200"`
	Content   string     `json:"content" validate:"required,max=2000"`
	Type      string     `json:"type,omitempty" validate:"omitempty,oneof=info promo warning"`
	IsActive  bool       `json:"isActive"`
	Priority  int        `json:"priority" validate:"gte=0"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

// FeaturedProduct pins a product on the home page.
type FeaturedProduct struct {
	ID       string     `json:"id" validate:"required"`
	Product  ProductRef `json:"product"`
	Position int        `json:"position"`
	IsActive bool       `json:"isActive"`
}

func (f *FeaturedProduct) UnmarshalJSON(data []byte) error {
	type alias FeaturedProduct
	var raw struct {
		alias
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = FeaturedProduct(raw.alias)
	if f.ID == "" {
		f.ID = raw.MongoID
	}
	return nil
}

// FeaturedProductInput is the admin create/update body.
type FeaturedProductInput struct {
	ProductID string `json:"productId" validate:"required"`
	Position  int    `json:"position" validate:"gte=0"`
	IsActive  bool   `json:"isActive"`
}

// ProductRef is a product reference that may arrive as a bare id or as a
// populated product document.
type ProductRef struct {
	ID      string
	Product *Product
}

func (r *ProductRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*r = ProductRef{}
		return nil
	}
	if trimmed[0] == '"' {
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return err
		}
		*r = ProductRef{ID: id}
		return nil
	}
	var product Product
	if err := json.Unmarshal(trimmed, &product); err != nil {
		return fmt.Errorf("decode product reference: %w", err)
	}
	*r = ProductRef{ID: product.ID, Product: &product}
	return nil
}

func (r ProductRef) MarshalJSON() ([]byte, error) {
	if r.Product != nil {
		return json.Marshal(r.Product)
	}
	return json.Marshal(r.ID)
}

// ServerCartItem is one line of the authenticated cart as the backend stores it.
type ServerCartItem struct {
	Product          ProductRef        `json:"productId"`
	Quantity         int               `json:"quantity" validate:"gte=1"`
	SelectedVariants map[string]string `json:"selectedVariants,omitempty"`
	AddedAt          time.Time         `json:"addedAt"`
}

// ServerCart is the authenticated cart document.
type ServerCart struct {
	Items []ServerCartItem `json:"items" validate:"dive"`
}

// CartItemRequest is the add/update/remove body of the cart sub-resource.
type CartItemRequest struct {
	ProductID        string            `json:"productId"`
	Quantity         int               `json:"quantity,omitempty"`
	SelectedVariants map[string]string `json:"selectedVariants,omitempty"`
}

type UnreadCount struct {
	Count int `json:"count"`
}

type Message struct {
	ID        string    `json:"id" validate:"required"`
	Subject   string    `json:"subject,omitempty"`
	Content   string    `json:"content"`
	From      string    `json:"from,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

func (m *Message) UnmarshalJSON(data []byte) error {
	type alias Message
	var raw struct {
		alias
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Message(raw.alias)
	if m.ID == "" {
		m.ID = raw.MongoID
	}
	return nil
}

// VendorRequestStatus is the backend acknowledgement of a vendor application.
type VendorRequestStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// DeliveryItem is one product line on a delivery slip.
type DeliveryItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Delivery is the order summary shown on the courier scan page.
type Delivery struct {
	DeliveryCode    string          `json:"deliveryCode" validate:"required"`
	OrderID         string          `json:"orderId"`
	Status          string          `json:"status" validate:"required"`
	CustomerName    string          `json:"customerName,omitempty"`
	ShippingAddress string          `json:"shippingAddress,omitempty"`
	Total           decimal.Decimal `json:"total"`
	Items           []DeliveryItem  `json:"items,omitempty"`
}

// OrderLine is one line of an order submission.
type OrderLine struct {
	ProductID        string            `json:"productId"`
	Quantity         int               `json:"quantity"`
	UnitPrice        decimal.Decimal   `json:"unitPrice"`
	SelectedVariants map[string]string `json:"selectedVariants,omitempty"`
	VendorID         string            `json:"vendorId,omitempty"`
}

// ShippingAddress is the checkout destination.
type ShippingAddress struct {
	FullName   string `json:"fullName" validate:"required,max=120"`
	Phone      string `json:"phone" validate:"required,min=6,max=20"`
	Street     string `json:"street" validate:"required,max=200"`
	City       string `json:"city" validate:"required,max=80"`
	PostalCode string `json:"postalCode,omitempty" validate:"omitempty,max=12"`
	Country    string `json:"country" validate:"required,len=2"`
}

// OrderRequest is the POST /orders body.
type OrderRequest struct {
	Items           []OrderLine     `json:"items"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	ShippingCost    decimal.Decimal `json:"shippingCost"`
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency"`
	Notes           string          `json:"notes,omitempty"`
}

// Order is the created order acknowledgement.
type Order struct {
	ID     string          `json:"id" validate:"required"`
	Status string          `json:"status"`
	Total  decimal.Decimal `json:"total"`
}

func (o *Order) UnmarshalJSON(data []byte) error {
	type alias Order
	var raw struct {
		alias
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*o = Order(raw.alias)
	if o.ID == "" {
		o.ID = raw.MongoID
	}
	return nil
}

// referenceID returns the id of a reference that is either a string or an
// object with an `id` or `_id` member.
func referenceID(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var id string
	if err := json.Unmarshal(trimmed, &id); err == nil {
		return id
	}
	var doc struct {
		ID      string `json:"id"`
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return ""
	}
	if doc.ID != "" {
		return doc.ID
	}
	return doc.MongoID
}
