package server

import (
	"errors"
	"io"
	"net/http"

	"coffebuck/internal/auth"
	"coffebuck/internal/cart"
	"coffebuck/internal/catalog"
	"coffebuck/internal/logging"

	"github.com/gin-gonic/gin"
)

func (s *Server) chat(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, s.proxy.MaxReadBytes()))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}
	resp := s.proxy.Chat(c.Request.Context(), c.ClientIP(), body)
	c.Data(resp.Status, resp.ContentType, resp.Body)
}

type assistantRequest struct {
	Message string `json:"message"`
}

func (s *Server) ask(c *gin.Context) {
	var req assistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	reply, err := s.assistant.Handle(c.Request.Context(), cartKey(c), req.Message)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

type menuResponse struct {
	Version    string             `json:"version"`
	Currency   string             `json:"currency"`
	Categories []catalog.Category `json:"categories"`
	Items      []catalog.MenuItem `json:"items"`
}

func (s *Server) menu(c *gin.Context) {
	cat := s.catalog.Current()
	c.JSON(http.StatusOK, menuResponse{
		Version:    cat.Version(),
		Currency:   cat.Currency(),
		Categories: cat.Categories(),
		Items:      cat.Items(),
	})
}

type cartView struct {
	Items []cart.Line `json:"items"`
	cart.Summary
}

func (s *Server) viewCart(c *gin.Context) {
	s.respondCart(c, http.StatusOK)
}

func (s *Server) respondCart(c *gin.Context, status int) {
	lines, err := s.carts.ReadAll(c.Request.Context(), cartKey(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if lines == nil {
		lines = []cart.Line{}
	}
	c.JSON(status, cartView{Items: lines, Summary: cart.Totals(lines, s.taxRate)})
}

type addItemRequest struct {
	ID  string `json:"id"`
	Qty int    `json:"qty"`
}

func (s *Server) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Qty == 0 {
		req.Qty = 1
	}

	line, err := cart.LineFor(s.catalog.Current(), req.ID, req.Qty)
	if err != nil {
		writeError(c, err)
		return
	}
	key := cartKey(c)
	err = s.carts.AddItem(c.Request.Context(), key, line)
	logging.AuditWithSession(key).CartOp(logging.AuditCartAdd, line.ID, line.Qty, err)
	if err != nil {
		writeError(c, err)
		return
	}
	s.respondCart(c, http.StatusCreated)
}

type updateItemRequest struct {
	Qty *int `json:"qty"`
}

func (s *Server) updateItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Qty == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "qty required"})
		return
	}

	key, id := cartKey(c), c.Param("id")
	err := s.carts.UpdateQty(c.Request.Context(), key, id, *req.Qty)
	logging.AuditWithSession(key).CartOp(logging.AuditCartUpdate, id, *req.Qty, err)
	if err != nil {
		writeError(c, err)
		return
	}
	s.respondCart(c, http.StatusOK)
}

func (s *Server) removeItem(c *gin.Context) {
	key, id := cartKey(c), c.Param("id")
	err := s.carts.Remove(c.Request.Context(), key, id)
	logging.AuditWithSession(key).CartOp(logging.AuditCartRemove, id, 0, err)
	if err != nil {
		writeError(c, err)
		return
	}
	s.respondCart(c, http.StatusOK)
}

func (s *Server) clearCart(c *gin.Context) {
	key := cartKey(c)
	err := s.carts.Clear(c.Request.Context(), key)
	logging.AuditWithSession(key).CartOp(logging.AuditCartClear, "", 0, err)
	if err != nil {
		writeError(c, err)
		return
	}
	s.respondCart(c, http.StatusOK)
}

func (s *Server) checkout(c *gin.Context) {
	ctx := c.Request.Context()
	key := cartKey(c)

	lines, err := s.carts.ReadAll(ctx, key)
	if err != nil {
		writeError(c, err)
		return
	}
	order, err := s.auth.RecordOrder(ctx, userID(c), lines, s.taxRate)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.carts.Clear(ctx, key); err != nil {
		// The order is already stored; report it and leave the cart.
		logging.CartError("clear %s after order %s: %v", key, order.ID, err)
	}
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	sess, err := s.auth.Signup(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	sess, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) me(c *gin.Context) {
	user, err := s.auth.Profile(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// writeError maps domain errors onto HTTP statuses. Anything unrecognised
// is logged and reported as a bare 500.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.Get(logging.CategoryHTTP).Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case auth.IsValidation(err),
		errors.Is(err, cart.ErrInvalidQty),
		errors.Is(err, cart.ErrEmptySession):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, auth.ErrEmailNotFound),
		errors.Is(err, auth.ErrIncorrectPassword),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, cart.ErrUnknownItem),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
