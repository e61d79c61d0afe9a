// Package response задает общий формат успешных ответов API.
package response

import "github.com/gin-gonic/gin"

type Envelope struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func JSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

func Message(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{Success: true, Message: message})
}
