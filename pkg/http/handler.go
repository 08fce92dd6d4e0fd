package http

import "github.com/labstack/echo/v4"

// Handler defines HTTP route registration interface.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// Handlers combines multiple handlers into one.
func Handlers(hs ...Handler) Handler {
	return handlerGroup(hs)
}

type handlerGroup []Handler

func (g handlerGroup) RegisterRoutes(e *echo.Echo) {
	for _, h := range g {
		if h != nil {
			h.RegisterRoutes(e)
		}
	}
}
