package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/camden-git/pathclassifier/models"
	"github.com/camden-git/pathclassifier/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const jwtIssuer = "pathclassifier"

type AuthHandler struct {
	UserRepo      repository.UserRepository
	JWTKey        []byte
	JWTExpiration time.Duration
}

func NewAuthHandler(userRepo repository.UserRepository, jwtKey []byte, expiration time.Duration) *AuthHandler {
	return &AuthHandler{UserRepo: userRepo, JWTKey: jwtKey, JWTExpiration: expiration}
}

type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// IssueToken signs a token for the user.
func (h *AuthHandler) IssueToken(user *models.User) (string, time.Time, error) {
	now := time.Now()
	expirationTime := now.Add(h.JWTExpiration)
	claims := &jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   fmt.Sprint(user.ID),
		ExpiresAt: jwt.NewNumericDate(expirationTime),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    jwtIssuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(h.JWTKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expirationTime, nil
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request payload")
		return
	}

	user, err := h.UserRepo.GetByUsername(payload.Username)
	if err != nil || !user.IsActive || !user.CheckPassword(payload.Password) {
		WriteAPIError(w, http.StatusUnauthorized, CodeUnauthenticated, "Invalid username or password")
		return
	}

	tokenString, expiresAt, err := h.IssueToken(user)
	if err != nil {
		log.Printf("auth: failed to sign token for user %d: %v", user.ID, err)
		WriteAPIError(w, http.StatusInternalServerError, CodeInternal, "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     tokenString,
		User:      *user,
		ExpiresAt: expiresAt,
	})
}

type RegisterPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// Register creates a regular account. Contributor access is granted separately.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request payload: "+err.Error())
		return
	}

	payload.Username = strings.TrimSpace(payload.Username)
	if payload.Username == "" || payload.Password == "" {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Username and password are required")
		return
	}
	if len(payload.Username) > 150 {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Username must be at most 150 characters")
		return
	}

	if _, err := h.UserRepo.GetByUsername(payload.Username); err == nil {
		WriteAPIError(w, http.StatusConflict, CodeConflict, "Username is already taken")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		writeServiceError(w, err)
		return
	}

	newUser := &models.User{
		Username:          payload.Username,
		Email:             strings.TrimSpace(payload.Email),
		IsActive:          true,
		GlobalPermissions: []string{},
	}
	if err := newUser.SetPassword(payload.Password); err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Password must be at most 72 bytes")
			return
		}
		WriteAPIError(w, http.StatusInternalServerError, CodeInternal, "Failed to hash password")
		return
	}
	if err := h.UserRepo.Create(newUser); err != nil {
		// lost a race on the unique username
		WriteAPIError(w, http.StatusConflict, CodeConflict, "Username is already taken")
		return
	}

	log.Printf("auth: registered user %s (%d)", newUser.Username, newUser.ID)
	writeJSON(w, http.StatusCreated, newUser)
}

// CurrentUser retrieves the authenticated user from the request context.
// This handler should be protected by the AuthMiddleware.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		WriteAPIError(w, http.StatusUnauthorized, CodeUnauthenticated, "Authentication required")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
