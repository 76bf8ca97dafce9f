package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/workstream-hq/workstream/internal/auth"
	"github.com/workstream-hq/workstream/internal/models"
	"github.com/workstream-hq/workstream/internal/repository"
)

const tokenTTL = 24 * time.Hour

// AuthHandler issues tokens. Signup without an org_id provisions a
// fresh organization with the caller as its admin; with an org_id the
// caller joins that org as a member.
type AuthHandler struct {
	orgs   repository.OrgRepository
	users  repository.UserRepository
	secret string
	logger *zap.Logger
}

func NewAuthHandler(orgs repository.OrgRepository, users repository.UserRepository, secret string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{orgs: orgs, users: users, secret: secret, logger: logger}
}

type signupRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required"`
	OrgName     string `json:"org_name"`
	OrgID       string `json:"org_id"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Signup handles POST /v1/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := h.users.GetByEmail(c.Request.Context(), email)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "A user with this email already exists"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var (
		orgID uuid.UUID
		role  models.Role
	)
	switch {
	case req.OrgID != "":
		orgID, err = uuid.Parse(req.OrgID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid org_id"})
			return
		}
		org, err := h.orgs.GetByID(c.Request.Context(), orgID)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		if org == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
			return
		}
		role = models.RoleMember

	default:
		orgName := strings.TrimSpace(req.OrgName)
		if orgName == "" {
			orgName = req.DisplayName + "'s workspace"
		}
		org, err := h.orgs.Create(c.Request.Context(), orgName)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		orgID = org.ID
		role = models.RoleAdmin
	}

	user, err := h.users.Create(c.Request.Context(), orgID, email, req.DisplayName, role, string(hash))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	token, err := auth.GenerateToken(user, h.secret, tokenTTL)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("user signed up",
		zap.String("user_id", user.ID.String()),
		zap.String("org_id", orgID.String()),
		zap.String("role", string(role)),
	)

	c.JSON(http.StatusCreated, authResponse{Token: token, User: user})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := h.users.GetByEmail(c.Request.Context(), email)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	// Same response whether the email is unknown or the password is
	// wrong — don't leak which accounts exist.
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := auth.GenerateToken(user, h.secret, tokenTTL)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, authResponse{Token: token, User: user})
}
