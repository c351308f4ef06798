package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/store"
)

// Handler contains HTTP handlers
type Handler struct {
	authService    *auth.Service
	catalogService *service.CatalogService
	cartService    *service.CartService
	orderService   *service.OrderService
	paymentService *service.PaymentService
	userService    *service.UserService
	jwtSecret      string
}

// NewHandler creates a new HTTP handler
func NewHandler(
	authService *auth.Service,
	catalogService *service.CatalogService,
	cartService *service.CartService,
	orderService *service.OrderService,
	paymentService *service.PaymentService,
	userService *service.UserService,
	jwtSecret string,
) *Handler {
	return &Handler{
		authService:    authService,
		catalogService: catalogService,
		cartService:    cartService,
		orderService:   orderService,
		paymentService: paymentService,
		userService:    userService,
		jwtSecret:      jwtSecret,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/sign-up", h.signUp)
		authGroup.POST("/sign-in", h.signIn)
	}

	products := v1.Group("/products")
	{
		products.GET("", h.listProducts)
		products.GET("/latest", h.latestProducts)
		products.GET("/:slug", h.productBySlug)
	}

	cart := v1.Group("/cart", authOptional(h.jwtSecret))
	{
		cart.GET("", h.getCart)
		cart.POST("/items", h.addToCart)
		cart.DELETE("/items/:productId", h.removeFromCart)
	}

	orders := v1.Group("/orders", authRequired(h.jwtSecret))
	{
		orders.POST("", h.placeOrder)
		orders.GET("", h.myOrders)
		orders.GET("/:id", h.getOrder)
		orders.POST("/:id/paypal", h.createPayPalOrder)
		orders.POST("/:id/paypal/capture", h.approvePayPalOrder)
	}

	users := v1.Group("/users", authRequired(h.jwtSecret))
	{
		users.GET("/me", h.me)
		users.PUT("/profile", h.updateProfile)
		users.PUT("/address", h.updateAddress)
		users.PUT("/payment-method", h.updatePaymentMethod)
	}

	admin := v1.Group("/admin", authRequired(h.jwtSecret), adminRequired())
	{
		admin.POST("/products", h.createProduct)
		admin.PUT("/products/:id", h.updateProduct)
		admin.DELETE("/products/:id", h.deleteProduct)

		admin.GET("/users", h.listUsers)
		admin.PUT("/users/:id", h.updateUser)
		admin.DELETE("/users/:id", h.deleteUser)

		admin.GET("/orders", h.listOrders)
		admin.DELETE("/orders/:id", h.deleteOrder)
		admin.POST("/orders/:id/pay", h.markOrderPaid)
		admin.POST("/orders/:id/deliver", h.markOrderDelivered)

		admin.GET("/summary", h.salesSummary)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

func (h *Handler) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	session, err := h.authService.SignUp(c.Request.Context(), req.Name, req.Email, req.Password, sessionCartID(c))
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email is already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create account"})
		return
	}

	c.JSON(http.StatusCreated, session)
}

type signInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	session, err := h.authService.SignIn(c.Request.Context(), req.Email, req.Password, sessionCartID(c))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sign in failed"})
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.catalogService.GetProducts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load products"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) latestProducts(c *gin.Context) {
	products, err := h.catalogService.GetLatestProducts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load products"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) productBySlug(c *gin.Context) {
	product, err := h.catalogService.GetProductBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "Product not found"})
		return
	}
	c.JSON(http.StatusOK, product)
}

// ensureSessionCart returns the caller's session cart key, minting a new
// one (and setting the cookie) for first-time anonymous visitors.
func (h *Handler) ensureSessionCart(c *gin.Context) string {
	if id := sessionCartID(c); id != "" {
		return id
	}
	id := uuid.New().String()
	c.SetCookie(sessionCartCookie, id, int((30 * 24 * time.Hour).Seconds()), "/", "", false, true)
	return id
}

func (h *Handler) getCart(c *gin.Context) {
	identity := callerIdentity(c)
	cart, err := h.cartService.GetMyCart(c.Request.Context(), identity.UserID, sessionCartID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart"})
		return
	}
	if cart == nil {
		c.JSON(http.StatusOK, gin.H{"items": models.CartItems{}})
		return
	}
	c.JSON(http.StatusOK, cart)
}

type addToCartRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Qty       int    `json:"qty" binding:"required,min=1"`
}

func (h *Handler) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	identity := callerIdentity(c)
	res := h.cartService.AddToCart(c.Request.Context(), identity.UserID, h.ensureSessionCart(c), req.ProductID, req.Qty)
	c.JSON(resultStatus(res, http.StatusOK), res)
}

func (h *Handler) removeFromCart(c *gin.Context) {
	identity := callerIdentity(c)
	res := h.cartService.RemoveFromCart(c.Request.Context(), identity.UserID, sessionCartID(c), c.Param("productId"))
	c.JSON(resultStatus(res, http.StatusOK), res)
}

func (h *Handler) placeOrder(c *gin.Context) {
	res := h.orderService.PlaceOrder(c.Request.Context(), callerIdentity(c).UserID)
	c.JSON(resultStatus(res, http.StatusCreated), res)
}

func (h *Handler) myOrders(c *gin.Context) {
	orders, err := h.orderService.GetMyOrders(c.Request.Context(), callerIdentity(c).UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) getOrder(c *gin.Context) {
	order, items, err := h.orderService.GetOrder(c.Request.Context(), callerIdentity(c), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "items": items})
}

func (h *Handler) createPayPalOrder(c *gin.Context) {
	res := h.paymentService.CreatePayPalOrder(c.Request.Context(), c.Param("id"))
	c.JSON(resultStatus(res, http.StatusCreated), res)
}

type approvePayPalRequest struct {
	PayPalOrderID string `json:"paypal_order_id" binding:"required"`
}

func (h *Handler) approvePayPalOrder(c *gin.Context) {
	var req approvePayPalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	res := h.paymentService.ApprovePayPalOrder(c.Request.Context(), c.Param("id"), req.PayPalOrderID)
	c.JSON(resultStatus(res, http.StatusOK), res)
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), callerIdentity(c).UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

type updateProfileRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	res := h.userService.UpdateProfile(c.Request.Context(), callerIdentity(c).UserID, req.Name)
	c.JSON(resultStatus(res, http.StatusOK), res)
}

func (h *Handler) updateAddress(c *gin.Context) {
	var address models.ShippingAddress
	if err := c.ShouldBindJSON(&address); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	res := h.userService.UpdateAddress(c.Request.Context(), callerIdentity(c).UserID, address)
	c.JSON(resultStatus(res, http.StatusOK), res)
}

type updatePaymentMethodRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required"`
}

func (h *Handler) updatePaymentMethod(c *gin.Context) {
	var req updatePaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	res := h.userService.UpdatePaymentMethod(c.Request.Context(), callerIdentity(c).UserID, req.PaymentMethod)
	c.JSON(resultStatus(res, http.StatusOK), res)
}

type productRequest struct {
	Name        string          `json:"name" binding:"required"`
	Slug        string          `json:"slug" binding:"required"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Stock       int             `json:"stock"`
}

func (h *Handler) createProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	product := &models.Product{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Image:       req.Image,
		Price:       req.Price,
		Stock:       req.Stock,
	}
	res := h.catalogService.CreateProduct(c.Request.Context(), product)
	c.JSON(resultStatus(res, http.StatusCreated), res)
}

func (h *Handler) updateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	product := &models.Product{
		ID:          c.Param("id"),
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Image:       req.Image,
		Price:       req.Price,
		Stock:       req.Stock,
	}
	res := h.catalogService.UpdateProduct(c.Request.Context(), product)
	c.JSON(resultStatus(res, http.StatusOK), res)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	res := h.catalogService.DeleteProduct(c.Request.Context(), c.Param("id"))
	c.JSON(resultStatus(res, http.StatusOK), res)
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.userService.GetAllUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type updateUserRequest struct {
	Name string `json:"name" binding:"required"`
	Role string `json:"role" binding:"required"`
}

func (h *Handler) updateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	res := h.userService.UpdateUser(c.Request.Context(), c.Param("id"), req.Name, req.Role)
	c.JSON(resultStatus(res, http.StatusOK), res)
}

func (h *Handler) deleteUser(c *gin.Context) {
	res := h.userService.DeleteUser(c.Request.Context(), c.Param("id"))
	c.JSON(resultStatus(res, http.StatusOK), res)
}

func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.orderService.GetAllOrders(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) deleteOrder(c *gin.Context) {
	res := h.orderService.DeleteOrder(c.Request.Context(), c.Param("id"))
	c.JSON(resultStatus(res, http.StatusOK), res)
}

func (h *Handler) markOrderPaid(c *gin.Context) {
	res := h.paymentService.MarkOrderPaidCOD(c.Request.Context(), callerIdentity(c), c.Param("id"))
	c.JSON(resultStatus(res, http.StatusOK), res)
}

func (h *Handler) markOrderDelivered(c *gin.Context) {
	res := h.paymentService.MarkOrderDelivered(c.Request.Context(), callerIdentity(c), c.Param("id"))
	c.JSON(resultStatus(res, http.StatusOK), res)
}

func (h *Handler) salesSummary(c *gin.Context) {
	summary, err := h.userService.GetSalesSummary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load summary"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// resultStatus maps an ActionResult to an HTTP status; failures are
// client-addressable so they return 400 rather than 500.
func resultStatus(res service.ActionResult, okStatus int) int {
	if res.Success {
		return okStatus
	}
	return http.StatusBadRequest
}
