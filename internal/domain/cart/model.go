package cart

import (
	"time"

	"hosting-app/internal/domain/users"

	"gorm.io/datatypes"
)

// GuestCookieName carries the guest session id between requests.
const GuestCookieName = "guest_session"

// GuestSession is an anonymous, cookie-identified cart owner. Rows are
// created lazily on first cart access and removed when the guest cart
// is merged into a user cart.
type GuestSession struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	CreatedAt time.Time
}

// Cart belongs to exactly one owner: an authenticated user or a guest
// session, never both.
type Cart struct {
	ID             uint          `gorm:"primaryKey"`
	UserID         *uint         `gorm:"uniqueIndex:idx_carts_user_id"`
	User           *users.User   `gorm:"constraint:OnDelete:CASCADE"`
	GuestSessionID *string       `gorm:"type:varchar(36);uniqueIndex:idx_carts_guest_session_id"`
	GuestSession   *GuestSession `gorm:"constraint:OnDelete:CASCADE"`
	Items          []CartItem    `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const KindHosting = "hosting"

type CartItem struct {
	ID        uint   `gorm:"primaryKey"`
	CartID    uint   `gorm:"not null;index"`
	Kind      string `gorm:"type:varchar(32);not null"`
	Name      string
	Plan      string `gorm:"type:varchar(64)"`
	Term      string `gorm:"type:varchar(16)"`
	PriceID   string `gorm:"type:varchar(128);not null"`
	Quantity  int64  `gorm:"not null;default:1"`
	Metadata  datatypes.JSON
	CreatedAt time.Time
}
