package cart

import (
	"errors"
	"path/filepath"
	"testing"

	"hosting-app/internal/domain/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&users.User{}, &GuestSession{}, &Cart{}, &CartItem{}))
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string) users.User {
	t.Helper()
	u := users.User{Name: "Test", Email: email, Role: "user"}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func hostingItem(plan, term string) CartItem {
	return CartItem{
		Kind:    KindHosting,
		Name:    "Hosting " + plan,
		Plan:    plan,
		Term:    term,
		PriceID: "price_" + plan + "_" + term,
	}
}

func items(t *testing.T, db *gorm.DB, cartID uint) []CartItem {
	t.Helper()
	var out []CartItem
	require.NoError(t, db.Where("cart_id = ?", cartID).Order("id ASC").Find(&out).Error)
	return out
}

func TestEnsureCartForUserIsLazyAndUnique(t *testing.T) {
	db := newTestDB(t)
	u := createUser(t, db, "a@example.com")

	c1, err := EnsureCartForUser(db, u.ID)
	require.NoError(t, err)
	c2, err := EnsureCartForUser(db, u.ID)
	require.NoError(t, err)

	assert.Equal(t, c1.ID, c2.ID)

	var count int64
	db.Model(&Cart{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestEnsureCartForGuestCreatesSession(t *testing.T) {
	db := newTestDB(t)

	c, err := EnsureCartForGuest(db, "guest-123")
	require.NoError(t, err)
	require.NotNil(t, c.GuestSessionID)
	assert.Equal(t, "guest-123", *c.GuestSessionID)

	var session GuestSession
	require.NoError(t, db.First(&session, "id = ?", "guest-123").Error)
}

func TestAddHostingItemDuplicate(t *testing.T) {
	db := newTestDB(t)
	c, err := EnsureCartForGuest(db, "g1")
	require.NoError(t, err)

	res, err := AddItem(db, c, hostingItem("web-pro", "year"))
	require.NoError(t, err)
	assert.Equal(t, Added, res)

	res, err = AddItem(db, c, hostingItem("web-pro", "year"))
	require.NoError(t, err)
	assert.Equal(t, Duplicate, res)

	got := items(t, db, c.ID)
	require.Len(t, got, 1, "duplicate must leave the cart unchanged")
}

func TestAddHostingItemReplaces(t *testing.T) {
	db := newTestDB(t)
	c, err := EnsureCartForGuest(db, "g1")
	require.NoError(t, err)

	_, err = AddItem(db, c, hostingItem("web-starter", "month"))
	require.NoError(t, err)

	res, err := AddItem(db, c, hostingItem("web-pro", "year"))
	require.NoError(t, err)
	assert.Equal(t, Replaced, res)

	got := items(t, db, c.ID)
	require.Len(t, got, 1, "a cart holds at most one hosting item")
	assert.Equal(t, "web-pro", got[0].Plan)
	assert.Equal(t, "year", got[0].Term)
}

func TestAddHostingItemReplaceOnTermChange(t *testing.T) {
	db := newTestDB(t)
	c, err := EnsureCartForGuest(db, "g1")
	require.NoError(t, err)

	_, err = AddItem(db, c, hostingItem("web-pro", "month"))
	require.NoError(t, err)
	res, err := AddItem(db, c, hostingItem("web-pro", "year"))
	require.NoError(t, err)
	assert.Equal(t, Replaced, res)
}

func TestAddNonHostingItemMergesQuantity(t *testing.T) {
	db := newTestDB(t)
	c, err := EnsureCartForGuest(db, "g1")
	require.NoError(t, err)

	addon := CartItem{Kind: "addon", Name: "Extra mailbox pack", PriceID: "price_mailbox_pack", Quantity: 1}
	res, err := AddItem(db, c, addon)
	require.NoError(t, err)
	assert.Equal(t, Added, res)

	res, err = AddItem(db, c, addon)
	require.NoError(t, err)
	assert.Equal(t, Merged, res)

	got := items(t, db, c.ID)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].Quantity)
}

func TestMergeGuestIntoUser(t *testing.T) {
	db := newTestDB(t)
	u := createUser(t, db, "buyer@example.com")

	guestCart, err := EnsureCartForGuest(db, "g1")
	require.NoError(t, err)
	_, err = AddItem(db, guestCart, hostingItem("web-pro", "year"))
	require.NoError(t, err)
	_, err = AddItem(db, guestCart, CartItem{Kind: "addon", Name: "Extra mailbox pack", PriceID: "price_mailbox_pack", Quantity: 2})
	require.NoError(t, err)

	require.NoError(t, MergeGuestIntoUser(db, u.ID, "g1"))

	userCart, err := EnsureCartForUser(db, u.ID)
	require.NoError(t, err)
	got := items(t, db, userCart.ID)
	require.Len(t, got, 2)
	assert.Equal(t, "web-pro", got[0].Plan)
	assert.Equal(t, int64(2), got[1].Quantity)

	// guest cart, its items and the session row are gone
	var cartCount, sessionCount int64
	db.Model(&Cart{}).Where("guest_session_id = ?", "g1").Count(&cartCount)
	db.Model(&GuestSession{}).Count(&sessionCount)
	assert.Equal(t, int64(0), cartCount)
	assert.Equal(t, int64(0), sessionCount)
}

func TestMergeGuestIntoUserNoGuestCart(t *testing.T) {
	db := newTestDB(t)
	u := createUser(t, db, "buyer@example.com")

	require.NoError(t, MergeGuestIntoUser(db, u.ID, "never-seen"))

	var count int64
	db.Model(&Cart{}).Count(&count)
	assert.Equal(t, int64(0), count, "merge with no guest cart must not create one")
}

func TestMergeKeepsHostingInvariant(t *testing.T) {
	db := newTestDB(t)
	u := createUser(t, db, "buyer@example.com")

	userCart, err := EnsureCartForUser(db, u.ID)
	require.NoError(t, err)
	_, err = AddItem(db, userCart, hostingItem("web-starter", "month"))
	require.NoError(t, err)

	guestCart, err := EnsureCartForGuest(db, "g1")
	require.NoError(t, err)
	_, err = AddItem(db, guestCart, hostingItem("web-pro", "year"))
	require.NoError(t, err)

	require.NoError(t, MergeGuestIntoUser(db, u.ID, "g1"))

	got := items(t, db, userCart.ID)
	require.Len(t, got, 1, "merged cart still holds a single hosting item")
	assert.Equal(t, "web-pro", got[0].Plan)
}

func TestMergeIsAtomic(t *testing.T) {
	db := newTestDB(t)
	u := createUser(t, db, "buyer@example.com")

	guestCart, err := EnsureCartForGuest(db, "g1")
	require.NoError(t, err)
	_, err = AddItem(db, guestCart, hostingItem("web-pro", "year"))
	require.NoError(t, err)
	_, err = AddItem(db, guestCart, CartItem{Kind: "addon", Name: "Backup add-on", PriceID: "price_backup", Quantity: 1})
	require.NoError(t, err)

	boom := errors.New("simulated crash mid-merge")
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := mergeGuestIntoUser(tx, u.ID, "g1"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// rollback leaves the exact pre-merge state: guest cart intact,
	// nothing moved, no user cart created
	var guestItems int64
	db.Model(&CartItem{}).Where("cart_id = ?", guestCart.ID).Count(&guestItems)
	assert.Equal(t, int64(2), guestItems)

	var userCarts int64
	db.Model(&Cart{}).Where("user_id = ?", u.ID).Count(&userCarts)
	assert.Equal(t, int64(0), userCarts)

	var sessions int64
	db.Model(&GuestSession{}).Where("id = ?", "g1").Count(&sessions)
	assert.Equal(t, int64(1), sessions)
}

func TestRemoveItem(t *testing.T) {
	db := newTestDB(t)
	c, err := EnsureCartForGuest(db, "g1")
	require.NoError(t, err)
	_, err = AddItem(db, c, hostingItem("web-pro", "year"))
	require.NoError(t, err)

	got := items(t, db, c.ID)
	require.Len(t, got, 1)

	require.NoError(t, RemoveItem(db, c, got[0].ID))
	assert.Empty(t, items(t, db, c.ID))

	assert.ErrorIs(t, RemoveItem(db, c, 9999), gorm.ErrRecordNotFound)
}

func TestUpdateQuantity(t *testing.T) {
	db := newTestDB(t)
	c, err := EnsureCartForGuest(db, "g1")
	require.NoError(t, err)

	_, err = AddItem(db, c, CartItem{Kind: "addon", Name: "Extra mailbox pack", PriceID: "price_mailbox_pack", Quantity: 1})
	require.NoError(t, err)
	_, err = AddItem(db, c, hostingItem("web-pro", "year"))
	require.NoError(t, err)

	got := items(t, db, c.ID)
	require.Len(t, got, 2)
	var addonID, hostingID uint
	for _, it := range got {
		if it.Kind == KindHosting {
			hostingID = it.ID
		} else {
			addonID = it.ID
		}
	}

	require.NoError(t, UpdateQuantity(db, c, addonID, 5))
	require.NoError(t, UpdateQuantity(db, c, hostingID, 5))

	for _, it := range items(t, db, c.ID) {
		if it.ID == addonID {
			assert.Equal(t, int64(5), it.Quantity)
		}
		if it.ID == hostingID {
			// hosting plans never stack
			assert.Equal(t, int64(1), it.Quantity)
		}
	}

	// below-one input clamps instead of erroring
	require.NoError(t, UpdateQuantity(db, c, addonID, 0))
	for _, it := range items(t, db, c.ID) {
		if it.ID == addonID {
			assert.Equal(t, int64(1), it.Quantity)
		}
	}

	assert.Error(t, UpdateQuantity(db, c, 9999, 2))
}
