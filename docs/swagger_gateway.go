package docs

// @title           Ride Gateway API
// @version         1.0
// @description     Live ride views for passengers and drivers. Commands are applied optimistically and reconciled with the ride store's change feed.

// @host      localhost:3000
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
