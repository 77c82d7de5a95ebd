package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/tripmates/tripmates-backend/internal/models"
	"github.com/tripmates/tripmates-backend/internal/store"
	"github.com/tripmates/tripmates-backend/pkg/utils"
)

type RegisterInput struct {
	FullName        string `json:"fullName" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=6"`
	CityOfResidence string `json:"cityOfResidence"`
	Bio             string `json:"bio"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func Register(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input RegisterInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if _, err := st.GetUserByEmail(c.Request.Context(), input.Email); err == nil {
			c.JSON(409, gin.H{"error": "email is already registered"})
			return
		} else if !errors.Is(err, store.ErrNotFound) {
			respondError(c, err)
			return
		}

		user := models.User{
			FullName:        input.FullName,
			Email:           input.Email,
			Password:        input.Password,
			CityOfResidence: input.CityOfResidence,
			Bio:             input.Bio,
		}
		if err := user.HashPassword(); err != nil {
			c.JSON(500, gin.H{"error": "Failed to hash password"})
			return
		}

		if err := st.CreateUser(c.Request.Context(), &user); err != nil {
			c.JSON(500, gin.H{"error": "Failed to create user"})
			return
		}

		token, err := utils.GenerateToken(&user)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(201, gin.H{
			"token": token,
			"user":  user,
		})
	}
}

func Login(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		user, err := st.GetUserByEmail(c.Request.Context(), input.Email)
		if err != nil {
			c.JSON(401, gin.H{"error": "Invalid credentials"})
			return
		}

		if err := user.CheckPassword(input.Password); err != nil {
			c.JSON(401, gin.H{"error": "Invalid credentials"})
			return
		}

		token, err := utils.GenerateToken(user)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(200, gin.H{
			"token": token,
			"user":  user,
		})
	}
}
