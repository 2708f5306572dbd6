package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/CodedInternet/golift/logger"
	"github.com/asdine/storm/v3"
	"github.com/dgrijalva/jwt-go"
	"github.com/go-chi/render"
	"golang.org/x/crypto/bcrypt"
)

var (
	JWT_HMAC_SECRET []byte        = []byte("Ns3QbpX0cW9c1rVw2i5mYzq7fJ8yH4kAe6uTgLdRoZk=")
	JWT_LIFESPAN    time.Duration = time.Hour
)

type contextKey string

const jwtContextKey = contextKey("jwt")

//---
// Structs
//

// Represents a local user
type User struct {
	ID       int    `storm:"increment"` // pk
	Email    string `storm:"unique"`
	Name     string
	Password string
	Admin    bool
}

// Sets the User.Password to the hashed value for the provided plain text
func (u *User) SetPassword(pass []byte) error {
	hash, err := bcrypt.GenerateFromPassword(pass, bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hash)
	return nil
}

// Compares User.Password with the provided plain text.
// Returns values directly as provided by the bcrypt library for downstream processing.
func (u *User) VerifyPassword(pass []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), pass)
}

// createSuperuser stores a new admin user.
func createSuperuser(db *storm.DB, email, password string) error {
	user := &User{
		Email: email,
		Name:  email,
		Admin: true,
	}
	if err := user.SetPassword([]byte(password)); err != nil {
		return err
	}
	return db.Save(user)
}

//---
// Generic payloads
//---

// Login payload
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (l *LoginPayload) Bind(r *http.Request) error {
	if l.Email == "" {
		return errors.New("email is required")
	}
	return nil
}

type JWTPayload struct {
	SignedToken string `json:"token"`
}

//---
// Helper functions
//

// Produce a standard format JWT token
func newJWT(sub string) (ts string, err error) {
	now := time.Now().UTC()
	claims := jwt.StandardClaims{
		Issuer:    ENV.JWT_ISSUER,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(JWT_LIFESPAN).Unix(),
		Subject:   sub,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString(JWT_HMAC_SECRET)
}

//---
// Views
//---

// Login looks up a user, verifies password and returns response
func Login(w http.ResponseWriter, r *http.Request) {
	data := &LoginPayload{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	var user User
	if err := ENV.DB.One("Email", data.Email, &user); err != nil {
		if err == storm.ErrNotFound {
			render.Render(w, r, ErrNotFound)
			return
		}
		render.Render(w, r, ErrRender(err))
		return
	}

	err := user.VerifyPassword([]byte(data.Password))
	if err != nil {
		if err == bcrypt.ErrMismatchedHashAndPassword {
			render.Render(w, r, ErrPermissionDenied(errors.New("Invalid password")))
			return
		}
		render.Render(w, r, ErrRender(err))
		return
	}

	tokenString, err := newJWT(user.Email)
	if err != nil {
		render.Render(w, r, ErrRender(err))
		return
	}

	logger.Infof("user %s logged in", user.Email)
	render.JSON(w, r, JWTPayload{tokenString})
}

// Provides a new token to the client
func JWTRefresh(w http.ResponseWriter, r *http.Request) {
	token := r.Context().Value(jwtContextKey).(*jwt.Token)
	claims := token.Claims.(*jwt.StandardClaims)

	tokenString, err := newJWT(claims.Subject)
	if err != nil {
		render.Render(w, r, ErrRender(err))
		return
	}

	render.JSON(w, r, JWTPayload{tokenString})
}

//---
// Authentication middleware
//---

var (
	JWTEmpty = errors.New("Bearer token not provided")
)

// tokenFromRequest looks in the query, then the Authorization header, then the cookie.
func tokenFromRequest(r *http.Request) (tokenStr string) {
	tokenStr = r.URL.Query().Get("jwt")

	if tokenStr == "" {
		bearer := r.Header.Get("Authorization")
		if len(bearer) > 7 && strings.ToUpper(bearer[0:6]) == "BEARER" {
			tokenStr = bearer[7:]
		}
	}

	if tokenStr == "" {
		if cookie, err := r.Cookie("jwt"); err == nil {
			tokenStr = cookie.Value
		}
	}

	return
}

func ValidateJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := tokenFromRequest(r)

		// Token is required, cya
		if tokenStr == "" {
			render.Render(w, r, ErrUnauthorized(JWTEmpty))
			return
		}

		token, err := jwt.ParseWithClaims(tokenStr,
			&jwt.StandardClaims{},
			func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return JWT_HMAC_SECRET, nil
			})

		if err != nil {
			reason := errors.New("Invalid token")

			var jwterr *jwt.ValidationError
			if errors.As(err, &jwterr) && jwterr.Errors&jwt.ValidationErrorExpired != 0 {
				reason = errors.New("Token has expired")
			}

			render.Render(w, r, ErrUnauthorized(reason))
			return
		}

		if !token.Valid {
			render.Render(w, r, ErrUnauthorized(errors.New("Invalid token")))
			return
		}

		ctx := context.WithValue(r.Context(), jwtContextKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
