package main

import (
	"fmt"

	"meshvault/model-api/app"
	"meshvault/model-api/config"
	"meshvault/model-api/db"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	err := config.Setup()
	if err != nil {
		panic(err)
	}

	if config.MigrateOnly() {
		conn, err := db.New()
		if err != nil {
			panic(err)
		}

		if err := db.Migrate(conn); err != nil {
			panic(err)
		}

		zap.L().Info("Migrations finished")
		return
	}

	a, err := app.NewRouter()
	if err != nil {
		panic(err)
	}

	zap.L().Info("Server starting", zap.Int("port", viper.GetInt("host.port")))

	err = a.Router.Run(fmt.Sprintf(":%d", viper.GetInt("host.port")))
	if err != nil {
		panic(err)
	}
}
