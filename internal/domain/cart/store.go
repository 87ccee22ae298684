package cart

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// AddResult reports what AddItem did with the incoming line.
type AddResult string

const (
	// Added: appended as a new line.
	Added AddResult = "added"
	// Merged: an identical line already existed, quantities combined.
	Merged AddResult = "merged"
	// Duplicate: the cart already holds this hosting plan+term, nothing changed.
	Duplicate AddResult = "duplicate"
	// Replaced: the previous hosting item was swapped for the new one.
	Replaced AddResult = "replaced"
)

// EnsureCartForUser returns the user's cart, creating it on first access.
func EnsureCartForUser(db *gorm.DB, userID uint) (*Cart, error) {
	var c Cart
	err := db.Preload("Items").Where("user_id = ?", userID).First(&c).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	c = Cart{UserID: &userID}
	if err := db.Create(&c).Error; err != nil {
		return nil, fmt.Errorf("failed to create user cart: %w", err)
	}
	return &c, nil
}

// EnsureCartForGuest returns the guest's cart, creating the guest
// session row and cart on first access.
func EnsureCartForGuest(db *gorm.DB, guestSessionID string) (*Cart, error) {
	if guestSessionID == "" {
		return nil, errors.New("guest session id is required")
	}

	var c Cart
	err := db.Preload("Items").Where("guest_session_id = ?", guestSessionID).First(&c).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	session := GuestSession{ID: guestSessionID}
	if err := db.FirstOrCreate(&session, GuestSession{ID: guestSessionID}).Error; err != nil {
		return nil, fmt.Errorf("failed to ensure guest session: %w", err)
	}

	c = Cart{GuestSessionID: &guestSessionID}
	if err := db.Create(&c).Error; err != nil {
		return nil, fmt.Errorf("failed to create guest cart: %w", err)
	}
	return &c, nil
}

// AddItem puts an item into the cart. A cart holds at most one hosting
// subscription at a time: hosting plans are not cumulative, so a second
// hosting item either signals Duplicate (same plan+term) or replaces
// the existing one. Non-hosting lines merge quantity when an identical
// line exists and append otherwise.
func AddItem(db *gorm.DB, c *Cart, item CartItem) (AddResult, error) {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	item.CartID = c.ID

	if item.Kind == KindHosting {
		var existing CartItem
		err := db.Where("cart_id = ? AND kind = ?", c.ID, KindHosting).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := db.Create(&item).Error; err != nil {
				return "", err
			}
			return Added, nil
		case err != nil:
			return "", err
		}

		if existing.Plan == item.Plan && existing.Term == item.Term {
			return Duplicate, nil
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Delete(&CartItem{}, existing.ID).Error; err != nil {
				return err
			}
			return tx.Create(&item).Error
		})
		if err != nil {
			return "", err
		}
		return Replaced, nil
	}

	var existing CartItem
	err := db.Where(
		"cart_id = ? AND kind = ? AND price_id = ? AND plan = ? AND term = ?",
		c.ID, item.Kind, item.PriceID, item.Plan, item.Term,
	).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := db.Create(&item).Error; err != nil {
			return "", err
		}
		return Added, nil
	case err != nil:
		return "", err
	}

	if err := db.Model(&CartItem{}).Where("id = ?", existing.ID).
		Update("quantity", gorm.Expr("quantity + ?", item.Quantity)).Error; err != nil {
		return "", err
	}
	return Merged, nil
}

// MergeGuestIntoUser moves every item of the guest cart into the user
// cart and removes the guest cart, its items and the guest session.
// The whole move runs in one transaction: a crash mid-merge must leave
// either the pre-merge state or the fully merged state.
func MergeGuestIntoUser(db *gorm.DB, userID uint, guestSessionID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		return mergeGuestIntoUser(tx, userID, guestSessionID)
	})
}

func mergeGuestIntoUser(tx *gorm.DB, userID uint, guestSessionID string) error {
	var guestCart Cart
	err := tx.Preload("Items").Where("guest_session_id = ?", guestSessionID).First(&guestCart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// nothing to merge, but drop a stale session row if present
		return tx.Where("id = ?", guestSessionID).Delete(&GuestSession{}).Error
	}
	if err != nil {
		return err
	}

	userCart, err := EnsureCartForUser(tx, userID)
	if err != nil {
		return err
	}

	for _, item := range guestCart.Items {
		moved := CartItem{
			Kind:     item.Kind,
			Name:     item.Name,
			Plan:     item.Plan,
			Term:     item.Term,
			PriceID:  item.PriceID,
			Quantity: item.Quantity,
			Metadata: item.Metadata,
		}
		if _, err := AddItem(tx, userCart, moved); err != nil {
			return fmt.Errorf("failed to move cart item %d: %w", item.ID, err)
		}
	}

	if err := tx.Where("cart_id = ?", guestCart.ID).Delete(&CartItem{}).Error; err != nil {
		return err
	}
	if err := tx.Delete(&Cart{}, guestCart.ID).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", guestSessionID).Delete(&GuestSession{}).Error
}

// UpdateQuantity sets the quantity of one line. Hosting items are
// pinned to quantity 1; other lines clamp to a minimum of 1.
func UpdateQuantity(db *gorm.DB, c *Cart, itemID uint, quantity int64) error {
	if quantity < 1 {
		quantity = 1
	}

	var item CartItem
	if err := db.Where("cart_id = ? AND id = ?", c.ID, itemID).First(&item).Error; err != nil {
		return err
	}
	if item.Kind == KindHosting {
		quantity = 1
	}

	return db.Model(&CartItem{}).Where("id = ?", item.ID).Update("quantity", quantity).Error
}

// RemoveItem deletes one line from the cart.
func RemoveItem(db *gorm.DB, c *Cart, itemID uint) error {
	res := db.Where("cart_id = ?", c.ID).Delete(&CartItem{}, itemID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Clear removes every item from the cart, keeping the cart row.
func Clear(db *gorm.DB, c *Cart) error {
	return db.Where("cart_id = ?", c.ID).Delete(&CartItem{}).Error
}
