package main

import (
	"github.com/Kevin69007/appli-interne-cuspide-sub007/config"
	"github.com/Kevin69007/appli-interne-cuspide-sub007/models"
	"github.com/Kevin69007/appli-interne-cuspide-sub007/routes"
	"github.com/Kevin69007/appli-interne-cuspide-sub007/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.User{}, &models.RewardState{}, &models.RewardTransaction{})

	r := routes.SetupRouter(db)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
