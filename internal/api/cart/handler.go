package cartapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"hosting-app/database"
	"hosting-app/internal/catalog"
	"hosting-app/internal/domain/cart"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Handler serves the cart endpoints for both authenticated users and
// cookie-identified guests.
type Handler struct {
	Catalog *catalog.Catalog
}

// currentCart resolves the caller's cart: the user cart when a JWT was
// presented, otherwise the guest cart. The guest session cookie is
// issued lazily on first cart access.
func (h *Handler) currentCart(c *gin.Context) (*cart.Cart, error) {
	if userID := c.GetUint("user_id"); userID != 0 {
		return cart.EnsureCartForUser(database.DB, userID)
	}

	guestID, err := c.Cookie(cart.GuestCookieName)
	if err != nil || guestID == "" {
		guestID = uuid.NewString()
		c.SetCookie(cart.GuestCookieName, guestID, 60*60*24*30, "/", "", false, true)
	}
	return cart.EnsureCartForGuest(database.DB, guestID)
}

type cartItemResponse struct {
	ID       uint            `json:"id"`
	Kind     string          `json:"kind"`
	Name     string          `json:"name"`
	Plan     string          `json:"plan,omitempty"`
	Term     string          `json:"term,omitempty"`
	PriceID  string          `json:"price_id"`
	Quantity int64           `json:"quantity"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

func toResponse(items []cart.CartItem) []cartItemResponse {
	out := make([]cartItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, cartItemResponse{
			ID:       it.ID,
			Kind:     it.Kind,
			Name:     it.Name,
			Plan:     it.Plan,
			Term:     it.Term,
			PriceID:  it.PriceID,
			Quantity: it.Quantity,
			Metadata: json.RawMessage(it.Metadata),
		})
	}
	return out
}

// GET /cart
func (h *Handler) GetCart(c *gin.Context) {
	current, err := h.currentCart(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": current.ID, "items": toResponse(current.Items)})
}

// POST /cart/items
func (h *Handler) AddItem(c *gin.Context) {
	var body struct {
		Kind     string          `json:"kind" binding:"required"`
		Name     string          `json:"name"`
		Plan     string          `json:"plan"`
		Term     string          `json:"term"`
		PriceID  string          `json:"price_id" binding:"required"`
		Quantity int64           `json:"quantity"`
		Metadata json.RawMessage `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// hosting items must reference a catalog price
	if body.Kind == cart.KindHosting {
		entry, ok := h.Catalog.Lookup(body.PriceID)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown price_id"})
			return
		}
		if body.Plan == "" {
			body.Plan = entry.SKU
		}
		if body.Term == "" {
			body.Term = string(entry.Term)
		}
	}

	current, err := h.currentCart(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart"})
		return
	}

	item := cart.CartItem{
		Kind:     body.Kind,
		Name:     body.Name,
		Plan:     body.Plan,
		Term:     body.Term,
		PriceID:  body.PriceID,
		Quantity: body.Quantity,
		Metadata: datatypes.JSON(body.Metadata),
	}

	result, err := cart.AddItem(database.DB, current, item)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add item"})
		return
	}

	status := http.StatusOK
	if result == cart.Duplicate {
		status = http.StatusConflict
	}

	refreshed, err := h.currentCart(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart"})
		return
	}
	c.JSON(status, gin.H{"result": result, "items": toResponse(refreshed.Items)})
}

// PATCH /cart/items/:id
func (h *Handler) UpdateItemQuantity(c *gin.Context) {
	itemID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item id"})
		return
	}

	var body struct {
		Quantity int64 `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	current, err := h.currentCart(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart"})
		return
	}

	if err := cart.UpdateQuantity(database.DB, current, uint(itemID), body.Quantity); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}

	refreshed, err := h.currentCart(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": toResponse(refreshed.Items)})
}

// DELETE /cart/items/:id
func (h *Handler) RemoveItem(c *gin.Context) {
	itemID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item id"})
		return
	}

	current, err := h.currentCart(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart"})
		return
	}

	if err := cart.RemoveItem(database.DB, current, uint(itemID)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed"})
}

// DELETE /cart
func (h *Handler) ClearCart(c *gin.Context) {
	current, err := h.currentCart(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart"})
		return
	}

	if err := cart.Clear(database.DB, current); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}
