package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"caseport/internal/app"
	"caseport/internal/server"
)

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		Long:  "Serve exposes document conversion and the run journal over HTTP. Bearer JWT authentication is enforced when CASEPORT_JWT_SECRET is set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(false, func(ws *app.Workspace) error {
				authCfg := server.AuthConfig{JWTSecret: viper.GetString("jwt-secret")}
				handler, err := server.New(server.Config{Engine: ws.Engine, BasePath: basePath, Auth: authCfg})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-cmd.Context().Done()
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(ctx)
				}()
				if authCfg.JWTSecret == "" {
					ws.Log.Warn("bearer auth disabled; set CASEPORT_JWT_SECRET to enable it")
				}
				ws.Log.Info("serving caseport API", "addr", addr, "base_path", basePath)
				fmt.Fprintf(cmd.OutOrStdout(), "Serving caseport API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}
