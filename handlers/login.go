package handlers

import (
	stderrors "errors"
	"strings"

	"event-ticketing/errors"
	"event-ticketing/model"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func isPasswordHashCorrect(dbHash, pass string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(dbHash), []byte(pass))
	return err == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp registers an account with the given role.
func (h *Handlers) SignUp(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		creds := new(credentials)
		if err := c.BodyParser(creds); err != nil {
			return errors.RaiseBadRequestError(c, "Error on sign up request when parse credentials")
		}

		email := normalizeEmail(creds.Email)
		name := strings.TrimSpace(creds.Name)
		if name == "" || email == "" || creds.Password == "" {
			return errors.RaiseBadRequestError(c, "name, email and password are required")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), h.HashCost)
		if err != nil {
			return errors.RaiseInternalServerError(c, err)
		}

		user, err := h.Users.CreateUser(c.UserContext(), model.UserData{
			Name:           name,
			Email:          email,
			HashedPassword: string(hash),
			Role:           role,
		})
		if stderrors.Is(err, model.ErrEmailTaken) {
			return errors.RaiseError(c, fiber.StatusBadRequest, errors.CodeConflict, "email is already registered", nil)
		}
		if err != nil {
			return errors.RaiseInternalServerError(c, err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"status":  "success",
			"message": "Registered successfully",
			"data":    user})
	}
}

// SignIn issues a token to an account of the given role. The response carries
// the account under "user" or "admin" depending on role.
func (h *Handlers) SignIn(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		creds := new(credentials)
		if err := c.BodyParser(creds); err != nil {
			return errors.RaiseBadRequestError(c, "Error on sign in request when parse credentials")
		}

		user, err := h.Users.FindUserByEmail(c.UserContext(), normalizeEmail(creds.Email))
		if err != nil && !stderrors.Is(err, model.ErrUserNotFound) {
			return errors.RaiseInternalServerError(c, err)
		}
		if err != nil || user.Role != role || !isPasswordHashCorrect(user.HashedPassword, creds.Password) {
			return errors.RaiseUnauthorizedError(c, "Invalid email or password")
		}

		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":   user.Id,
			"email": user.Email,
			"role":  user.Role,
			"exp":   h.Now().Add(h.TokenTTL).Unix(),
		})
		t, err := token.SignedString(h.SigningKey)
		if err != nil {
			return errors.RaiseInternalServerError(c, err)
		}

		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Success login",
			"token":   t,
			role: model.AttendeeUser{
				Id:    user.Id,
				Name:  user.Name,
				Email: user.Email,
			}})
	}
}
