package handler

import (
	"errors"
	"log"
	"net/http"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"taskmanager/internal/auth"
	"taskmanager/internal/model"
	"taskmanager/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type UserHandler struct {
	repo   repository.UserRepositoryInterface
	tokens *auth.TokenManager
}

func NewUserHandler(repo repository.UserRepositoryInterface, tokens *auth.TokenManager) *UserHandler {
	return &UserHandler{repo: repo, tokens: tokens}
}

type registerRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func newUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:    user.ID.String(),
		Name:  user.Name,
		Email: user.Email,
	}
}

// Register handles POST /register and issues a bearer token alongside the
// created user.
func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid input")
		return
	}

	req.Email = strings.ToLower(req.Email)

	fields := map[string][]string{}
	if req.Name == "" {
		fields["name"] = append(fields["name"], "Le nom est obligatoire.")
	} else if utf8.RuneCountInString(req.Name) > 255 {
		fields["name"] = append(fields["name"], "Le nom ne doit pas contenir plus de 255 caractères.")
	}

	if req.Email == "" {
		fields["email"] = append(fields["email"], "L'email est obligatoire.")
	} else if _, err := mail.ParseAddress(req.Email); err != nil {
		fields["email"] = append(fields["email"], "L'email doit avoir un format valide.")
	}

	fields = validatePassword(req.Password, fields)
	if req.Password != "" && req.Password != req.PasswordConfirmation {
		fields["password"] = append(fields["password"], "Le mot de passe de confirmation ne correspond pas.")
	}

	if _, ok := fields["email"]; !ok {
		existing, err := h.repo.FindByEmail(c.Request.Context(), req.Email)
		if err != nil {
			log.Printf("❌ email lookup failed: %v", err)
			respondError(c, http.StatusInternalServerError, "Erreur lors de la création du compte")
			return
		}
		if existing != nil {
			fields["email"] = append(fields["email"], "L'email est deja utilise.")
		}
	}

	if len(fields) > 0 {
		respondValidation(c, fields)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("❌ password hashing failed: %v", err)
		respondError(c, http.StatusInternalServerError, "Erreur lors de la création du compte")
		return
	}

	user := &model.User{
		ID:             uuid.New(),
		Email:          req.Email,
		Name:           req.Name,
		HashedPassword: string(hash),
	}

	if err := h.repo.Create(c.Request.Context(), user); err != nil {
		// a concurrent register can slip past the pre-check and hit the
		// unique index
		if errors.Is(err, repository.ErrDuplicateEmail) {
			respondValidation(c, map[string][]string{
				"email": {"L'email est deja utilise."},
			})
			return
		}
		log.Printf("❌ user creation failed: %v", err)
		respondError(c, http.StatusInternalServerError, "Erreur lors de la création du compte")
		return
	}

	token, err := h.tokens.Generate(user.ID.String())
	if err != nil {
		log.Printf("❌ token generation failed: %v", err)
		respondError(c, http.StatusInternalServerError, "Erreur lors de la création du compte")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":  newUserResponse(user),
		"token": token,
	})
}

// Login handles POST /login.
func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid input")
		return
	}

	fields := map[string][]string{}
	if req.Email == "" {
		fields["email"] = append(fields["email"], "L'email est obligatoire.")
	}
	if req.Password == "" {
		fields["password"] = append(fields["password"], "Le mot de passe est obligatoire.")
	}
	if len(fields) > 0 {
		respondValidation(c, fields)
		return
	}

	user, err := h.repo.FindByEmail(c.Request.Context(), strings.ToLower(req.Email))
	if err != nil {
		log.Printf("❌ email lookup failed: %v", err)
		respondError(c, http.StatusInternalServerError, "Erreur lors de la connexion")
		return
	}

	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)) != nil {
		respondError(c, http.StatusUnauthorized, "Les identifiants sont incorrects")
		return
	}

	token, err := h.tokens.Generate(user.ID.String())
	if err != nil {
		log.Printf("❌ token generation failed: %v", err)
		respondError(c, http.StatusInternalServerError, "Erreur lors de la connexion")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":  newUserResponse(user),
		"token": token,
	})
}

// Me handles GET /user and returns the authenticated user.
func (h *UserHandler) Me(c *gin.Context) {
	callerID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.repo.GetByID(c.Request.Context(), callerID)
	if err != nil {
		log.Printf("❌ user lookup failed: %v", err)
		respondError(c, http.StatusInternalServerError, "Erreur lors de la récupération de l'utilisateur")
		return
	}
	if user == nil {
		respondError(c, http.StatusNotFound, "Utilisateur introuvable")
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}

func validatePassword(password string, fields map[string][]string) map[string][]string {
	if password == "" {
		fields["password"] = append(fields["password"], "Le mot de passe est obligatoire.")
		return fields
	}

	if len(password) < 8 {
		fields["password"] = append(fields["password"], "Le mot de passe doit contenir au moins 8 caractères.")
	}

	var hasLetter, hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasLetter, hasUpper = true, true
		case unicode.IsLower(r):
			hasLetter, hasLower = true, true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	if !hasLetter {
		fields["password"] = append(fields["password"], "Le mot de passe doit contenir au moins une lettre.")
	}
	if !hasUpper || !hasLower {
		fields["password"] = append(fields["password"], "Le mot de passe doit contenir au moins une lettre majuscule et une lettre minuscule.")
	}
	if !hasDigit {
		fields["password"] = append(fields["password"], "Le mot de passe doit contenir au moins un chiffre.")
	}
	if !hasSymbol {
		fields["password"] = append(fields["password"], "Le mot de passe doit contenir au moins un symbole.")
	}
	return fields
}
