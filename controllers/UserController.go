package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"istock.com/dto"
	"istock.com/middlewares"
	"istock.com/services"
	"istock.com/types"
)

type UserController struct {
}

func NewUserController() *UserController { return &UserController{} }

// Register godoc
//
//	@Summary		Register a user
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			body	body		dto.RegisterRequest			true	"New account"
//	@Success		201		{object}	types.Response{data=types.User}
//	@Failure		400		{object}	types.Response	"Validation failed or username/email taken"
//	@Router			/users/register [post]
func (uc *UserController) Register(c *fiber.Ctx) error {
	req := c.Locals("validatedBody").(*dto.RegisterRequest)

	user, err := services.RegisterUser(req)
	if err != nil {
		if errors.Is(err, services.ErrUsernameTaken) || errors.Is(err, services.ErrEmailTaken) {
			return c.Status(400).JSON(types.Response{
				Success: false,
				Error:   err.Error(),
			})
		}
		log.Errorf("Register %s: %v", req.Username, err)
		return c.Status(500).JSON(types.Response{
			Success: false,
			Error:   "Failed to register user",
		})
	}

	return c.Status(201).JSON(types.Response{
		Success: true,
		Data:    user,
	})
}

// Login godoc
//
//	@Summary		Log in
//	@Description	Returns a bearer token. Five failed attempts lock the account for 15 minutes.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			body	body		dto.LoginRequest	true	"Credentials"
//	@Success		200		{object}	types.Response{data=dto.TokenResponse}
//	@Failure		401		{object}	types.Response	"Wrong username or password"
//	@Failure		403		{object}	types.Response	"Account disabled"
//	@Failure		423		{object}	types.Response	"Account locked"
//	@Router			/users/login [post]
func (uc *UserController) Login(c *fiber.Ctx) error {
	req := c.Locals("validatedBody").(*dto.LoginRequest)

	user, err := services.Authenticate(req.Username, req.Password)
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		return c.Status(401).JSON(types.Response{Success: false, Error: "Incorrect username or password"})
	case errors.Is(err, services.ErrInactiveUser):
		return c.Status(403).JSON(types.Response{Success: false, Error: "User account is disabled"})
	case errors.Is(err, services.ErrAccountLocked):
		return c.Status(fiber.StatusLocked).JSON(types.Response{Success: false, Error: "Account temporarily locked after repeated failed logins"})
	case err != nil:
		log.Errorf("Login %s: %v", req.Username, err)
		return c.Status(500).JSON(types.Response{Success: false, Error: "Login failed"})
	}

	token, expiresIn, err := middlewares.GenerateToken(user, tokenTTL())
	if err != nil {
		log.Errorf("Token for %s: %v", user.Username, err)
		return c.Status(500).JSON(types.Response{Success: false, Error: "Failed to issue token"})
	}

	return c.JSON(types.Response{
		Success: true,
		Data: dto.TokenResponse{
			AccessToken: token,
			TokenType:   "bearer",
			ExpiresIn:   expiresIn,
			User:        *user,
		},
	})
}

// Me godoc
//
//	@Summary	Current user
//	@Tags		Users
//	@Produce	json
//	@Success	200	{object}	types.Response{data=types.User}
//	@Failure	401	{object}	types.Response
//	@Security	BearerAuth
//	@Router		/users/me [get]
func (uc *UserController) Me(c *fiber.Ctx) error {
	user, err := services.GetUser(middlewares.UserID(c))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(404).JSON(types.Response{Success: false, Error: err.Error()})
		}
		return c.Status(500).JSON(types.Response{Success: false, Error: err.Error()})
	}
	return c.JSON(types.Response{Success: true, Data: user})
}

// UpdateMe godoc
//
//	@Summary	Update the current user
//	@Tags		Users
//	@Accept		json
//	@Produce	json
//	@Param		body	body		dto.UpdateUserRequest	true	"Fields to change"
//	@Success	200		{object}	types.Response{data=types.User}
//	@Failure	400		{object}	types.Response
//	@Security	BearerAuth
//	@Router		/users/me [put]
func (uc *UserController) UpdateMe(c *fiber.Ctx) error {
	req := c.Locals("validatedBody").(*dto.UpdateUserRequest)

	user, err := services.UpdateUser(middlewares.UserID(c), req)
	switch {
	case errors.Is(err, services.ErrEmailTaken):
		return c.Status(400).JSON(types.Response{Success: false, Error: err.Error()})
	case errors.Is(err, services.ErrUserNotFound):
		return c.Status(404).JSON(types.Response{Success: false, Error: err.Error()})
	case err != nil:
		return c.Status(500).JSON(types.Response{Success: false, Error: "Failed to update user: " + err.Error()})
	}
	return c.JSON(types.Response{Success: true, Data: user})
}

// CheckUsername godoc
//
//	@Summary	Username availability
//	@Tags		Users
//	@Produce	json
//	@Param		username	path		string	true	"Username"
//	@Success	200			{object}	types.Response{data=dto.UsernameAvailability}
//	@Router		/users/check/username/{username} [get]
func (uc *UserController) CheckUsername(c *fiber.Ctx) error {
	username := c.Params("username")
	available, err := services.UsernameAvailable(username)
	if err != nil {
		return c.Status(500).JSON(types.Response{Success: false, Error: err.Error()})
	}
	return c.JSON(types.Response{
		Success: true,
		Data:    dto.UsernameAvailability{Username: username, Available: available},
	})
}

// CheckEmail godoc
//
//	@Summary	Email availability
//	@Tags		Users
//	@Produce	json
//	@Param		email	path		string	true	"Email"
//	@Success	200		{object}	types.Response{data=dto.EmailAvailability}
//	@Router		/users/check/email/{email} [get]
func (uc *UserController) CheckEmail(c *fiber.Ctx) error {
	email := c.Params("email")
	available, err := services.EmailAvailable(email, "")
	if err != nil {
		return c.Status(500).JSON(types.Response{Success: false, Error: err.Error()})
	}
	return c.JSON(types.Response{
		Success: true,
		Data:    dto.EmailAvailability{Email: email, Available: available},
	})
}

func InitUserRoutes(app fiber.Router) {
	userController := NewUserController()

	app.Post("/users/register", middlewares.ValidateBody[dto.RegisterRequest](), userController.Register)
	app.Post("/users/login", middlewares.ValidateBody[dto.LoginRequest](), userController.Login)
	app.Get("/users/me", middlewares.Auth, userController.Me)
	app.Put("/users/me", middlewares.Auth, middlewares.ValidateBody[dto.UpdateUserRequest](), userController.UpdateMe)
	app.Get("/users/check/username/:username", userController.CheckUsername)
	app.Get("/users/check/email/:email", userController.CheckEmail)
}
