package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/readnest/readnest-server/middleware"
	"github.com/readnest/readnest-server/models"
	"github.com/readnest/readnest-server/service"
	"github.com/readnest/readnest-server/store"
)

type AuthHandler struct {
	Users     AuthStore
	Files     FileStorage
	JWTSecret string
	TokenTTL  time.Duration
	MaxBytes  int64
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	City     string `json:"city" validate:"omitempty,max=64"`
	Country  string `json:"country" validate:"omitempty,max=64"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries a fresh token plus the profile it was minted from.
// It is returned by every operation that changes what the token encodes.
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	user := &models.User{
		Username:  req.Username,
		Email:     req.Email,
		Password:  string(hash),
		City:      req.City,
		Country:   req.Country,
		Favorites: []primitive.ObjectID{},
		CreatedAt: time.Now(),
	}
	id, err := h.Users.CreateUser(r.Context(), user)
	if err != nil {
		writeStoreError(w, err, "user not found", "username or email already in use")
		return
	}
	user.ID = id

	h.respondWithToken(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.Users.UserByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	h.respondWithToken(w, http.StatusOK, user)
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	user, err := h.Users.UserByID(r.Context(), userID)
	if err != nil {
		writeStoreError(w, err, "user not found", "")
		return
	}
	user.DeriveURLs()
	writeJSON(w, http.StatusOK, user)
}

type UpdateProfileRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=32"`
	Email    *string `json:"email" validate:"omitempty,email"`
	City     *string `json:"city" validate:"omitempty,max=64"`
	Country  *string `json:"country" validate:"omitempty,max=64"`
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Username != nil {
		trimmed := strings.TrimSpace(*req.Username)
		req.Username = &trimmed
	}
	if req.Email != nil {
		lowered := strings.ToLower(strings.TrimSpace(*req.Email))
		req.Email = &lowered
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.Users.UpdateUserProfile(r.Context(), userID, req.Username, req.Email, req.City, req.Country)
	if err != nil {
		writeStoreError(w, err, "user not found", "username or email already in use")
		return
	}

	// The token embeds profile fields, so edits re-issue it.
	h.respondWithToken(w, http.StatusOK, user)
}

const maxAvatarBytes = 5 << 20

func (h *AuthHandler) UploadProfileImage(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	if h.Files == nil {
		writeError(w, http.StatusServiceUnavailable, "upload not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes)
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing image")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "only image uploads are allowed")
		return
	}

	user, err := h.Users.UserByID(r.Context(), userID)
	if err != nil {
		writeStoreError(w, err, "user not found", "")
		return
	}

	key, err := h.Files.Upload(r.Context(), service.PrefixAvatars, header.Filename, file, contentType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to upload to storage")
		return
	}
	if err := h.Users.UpdateUserProfileImage(r.Context(), userID, key); err != nil {
		writeStoreError(w, err, "user not found", "")
		return
	}
	if user.ProfileImage != "" {
		_ = h.Files.Delete(r.Context(), user.ProfileImage)
	}
	user.ProfileImage = key

	h.respondWithToken(w, http.StatusOK, user)
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.Users.UserByID(r.Context(), userID)
	if err != nil {
		writeStoreError(w, err, "user not found", "")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		writeError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to change password")
		return
	}
	if err := h.Users.UpdateUserPassword(r.Context(), userID, string(hash)); err != nil {
		writeStoreError(w, err, "user not found", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	user, err := h.Users.UserByID(r.Context(), userID)
	if err != nil {
		writeStoreError(w, err, "user not found", "")
		return
	}
	if err := h.Users.DeleteUser(r.Context(), userID); err != nil {
		writeStoreError(w, err, "user not found", "")
		return
	}
	if h.Files != nil && user.ProfileImage != "" {
		_ = h.Files.Delete(r.Context(), user.ProfileImage)
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondWithToken mints a token for user and writes it with the profile.
func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, user *models.User) {
	user.DeriveURLs()
	token, err := h.createToken(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not create token")
		return
	}
	writeJSON(w, status, AuthResponse{Token: token, User: user})
}

func (h *AuthHandler) createToken(user *models.User) (string, error) {
	ttl := h.TokenTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	claims := &middleware.Claims{
		UserID:       user.ID.Hex(),
		Username:     user.Username,
		ProfileImage: user.ProfileImageURL,
		City:         user.City,
		Country:      user.Country,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.JWTSecret))
}
