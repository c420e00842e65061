package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taskmanager/taskmanager-go/internal/middleware"
	"github.com/taskmanager/taskmanager-go/internal/service"
)

// NewRouter wires every route of the API onto a chi router.
func NewRouter(auth *service.AuthService, lists *service.ListService, tasks *service.TaskService) http.Handler {
	users := NewUserHandler(auth)
	listHandler := NewListHandler(lists)
	taskHandler := NewTaskHandler(tasks)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Post("/users", users.HandleSignup)
	r.Post("/users/login", users.HandleLogin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RefreshSession(auth))
		r.Get("/users/me/access-token", users.HandleAccessToken)
		r.Post("/users/me/logout", users.HandleLogout)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.AccessToken(auth))
		r.Get("/users/me", users.HandleMe)

		r.Route("/lists", func(r chi.Router) {
			r.Get("/", listHandler.HandleListLists)
			r.Post("/", listHandler.HandleCreateList)

			r.Route("/{listId}", func(r chi.Router) {
				r.Get("/", listHandler.HandleGetList)
				r.Patch("/", listHandler.HandleUpdateList)
				r.Delete("/", listHandler.HandleDeleteList)

				r.Get("/tasks", taskHandler.HandleListTasks)
				r.Post("/tasks", taskHandler.HandleCreateTask)
				r.Get("/tasks/{taskId}", taskHandler.HandleGetTask)
				r.Patch("/tasks/{taskId}", taskHandler.HandleUpdateTask)
				r.Delete("/tasks/{taskId}", taskHandler.HandleDeleteTask)
			})
		})
	})

	return r
}
