package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/devgould/petstudio/internal/domain"
	"github.com/devgould/petstudio/internal/orchestrator"
	"github.com/devgould/petstudio/internal/repo"
)

// Deps — зависимости команд: репозитории и оркестратор.
// Создаются лениво после парсинга PersistentFlags.
type Deps struct {
	Orders    *repo.OrderRepo
	SubJobs   *repo.SubJobRepo
	Artifacts *repo.ArtifactRepo
	Orch      *orchestrator.Orchestrator

	// Close закрывает соединения (pool, MQ). Вызывается после команды.
	Close func()
}

// DepsFn создаёт Deps для команды. Ошибка подключения
// возвращается как ошибка команды.
type DepsFn func(ctx context.Context) (*Deps, error)

// NewOrderCmd создаёт группу команд для управления заказами.
func NewOrderCmd(depsFn DepsFn, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Manage orders",
	}

	cmd.AddCommand(
		newOrderCreateCmd(depsFn, outputFn),
		newOrderListCmd(depsFn, outputFn),
		newOrderShowCmd(depsFn, outputFn),
		newOrderCheckCmd(depsFn, outputFn),
		newOrderRestartCmd(depsFn, outputFn),
		newOrderRestartInferenceCmd(depsFn, outputFn),
		newOrderUploadResultsCmd(depsFn, outputFn),
	)

	return cmd
}

func newOrderCreateCmd(depsFn DepsFn, outputFn func() *Output) *cobra.Command {
	var zipURL string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new order from a training images ZIP",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := depsFn(cmd.Context())
			if err != nil {
				return err
			}
			defer deps.Close()
			out := outputFn()

			order := &domain.Order{
				ID:                   uuid.New(),
				Status:               domain.OrderStatusPending,
				TrainingImagesZipURL: zipURL,
				CreatedAt:            time.Now(),
			}

			if err := deps.Orders.Create(cmd.Context(), order); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Order created: %s", order.ID))
			out.Print(orderHeaders, [][]string{orderRow(order)}, order)
			return nil
		},
	}

	cmd.Flags().StringVar(&zipURL, "zip-url", "", "URL of the ZIP with training photos (required)")
	cmd.MarkFlagRequired("zip-url")

	return cmd
}

func newOrderListCmd(depsFn DepsFn, outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := depsFn(cmd.Context())
			if err != nil {
				return err
			}
			defer deps.Close()
			out := outputFn()

			orders, err := deps.Orders.ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			rows := make([][]string, len(orders))
			for i := range orders {
				rows[i] = orderRow(&orders[i])
			}

			out.Print(orderHeaders, rows, orders)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of orders")

	return cmd
}

func newOrderShowCmd(depsFn DepsFn, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show order details, current batch sub-jobs and artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := parseOrderID(args[0])
			if err != nil {
				return err
			}

			deps, err := depsFn(cmd.Context())
			if err != nil {
				return err
			}
			defer deps.Close()
			out := outputFn()

			order, err := deps.Orders.GetByID(cmd.Context(), orderID)
			if err != nil {
				return err
			}

			// Все sub-jobs, включая прошлые batch'и — для отладки
			// после restart-inference видна вся история.
			subJobs, err := deps.SubJobs.ListByOrder(cmd.Context(), order.ID)
			if err != nil {
				return err
			}

			artifacts, err := deps.Artifacts.ListByOrder(cmd.Context(), order.ID)
			if err != nil {
				return err
			}

			if out.jsonMode {
				out.JSON(map[string]any{
					"order":     order,
					"sub_jobs":  subJobs,
					"artifacts": artifacts,
				})
				return nil
			}

			out.Table(orderHeaders, [][]string{orderRow(order)})

			if len(subJobs) > 0 {
				out.Section("Sub-jobs")
				rows := make([][]string, len(subJobs))
				for i := range subJobs {
					j := &subJobs[i]
					rows[i] = []string{
						j.ID.String(),
						strconv.Itoa(j.Batch),
						j.ExternalID,
						string(j.Status),
						strconv.Itoa(len(j.Output)),
						truncate(j.Prompt, 48),
					}
				}
				out.Table([]string{"ID", "BATCH", "EXTERNAL_ID", "STATUS", "OUTPUTS", "PROMPT"}, rows)
			}

			if len(artifacts) > 0 {
				out.Section("Artifacts")
				rows := make([][]string, len(artifacts))
				for i := range artifacts {
					a := &artifacts[i]
					rows[i] = []string{a.ID.String(), a.URL}
				}
				out.Table([]string{"ID", "URL"}, rows)
			}

			return nil
		},
	}
}

func newOrderCheckCmd(depsFn DepsFn, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "check ID",
		Short: "Run a single status check for an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := parseOrderID(args[0])
			if err != nil {
				return err
			}

			deps, err := depsFn(cmd.Context())
			if err != nil {
				return err
			}
			defer deps.Close()
			out := outputFn()

			if err := deps.Orch.CheckOrder(cmd.Context(), orderID); err != nil {
				return err
			}

			return showAfter(cmd.Context(), deps, out, orderID, "Check completed")
		},
	}
}

func newOrderRestartCmd(depsFn DepsFn, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "restart ID",
		Short: "Restart an order from training",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := parseOrderID(args[0])
			if err != nil {
				return err
			}

			deps, err := depsFn(cmd.Context())
			if err != nil {
				return err
			}
			defer deps.Close()
			out := outputFn()

			if err := deps.Orch.Restart(cmd.Context(), orderID); err != nil {
				return err
			}

			return showAfter(cmd.Context(), deps, out, orderID, "Order restarted")
		},
	}
}

func newOrderRestartInferenceCmd(depsFn DepsFn, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "restart-inference ID",
		Short: "Start a new inference batch on the trained model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := parseOrderID(args[0])
			if err != nil {
				return err
			}

			deps, err := depsFn(cmd.Context())
			if err != nil {
				return err
			}
			defer deps.Close()
			out := outputFn()

			if err := deps.Orch.RestartInference(cmd.Context(), orderID); err != nil {
				return err
			}

			return showAfter(cmd.Context(), deps, out, orderID, "Inference restarted")
		},
	}
}

func newOrderUploadResultsCmd(depsFn DepsFn, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "upload-results ID",
		Short: "Re-run artifact persistence for missed results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := parseOrderID(args[0])
			if err != nil {
				return err
			}

			deps, err := depsFn(cmd.Context())
			if err != nil {
				return err
			}
			defer deps.Close()
			out := outputFn()

			if err := deps.Orch.UploadResults(cmd.Context(), orderID); err != nil {
				return err
			}

			artifacts, err := deps.Artifacts.ListByOrder(cmd.Context(), orderID)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Upload completed: %d artifacts stored", len(artifacts)))
			return nil
		},
	}
}

// showAfter печатает актуальное состояние заказа после операции.
func showAfter(ctx context.Context, deps *Deps, out *Output, orderID uuid.UUID, msg string) error {
	order, err := deps.Orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	out.Success(msg)
	out.Print(orderHeaders, [][]string{orderRow(order)}, order)
	return nil
}

var orderHeaders = []string{"ID", "STATUS", "TRAINING_JOB", "BATCH", "CREATED"}

func orderRow(o *domain.Order) []string {
	return []string{
		o.ID.String(),
		string(o.Status),
		o.TrainingJobID,
		strconv.Itoa(o.InferenceBatch),
		o.CreatedAt.Format(time.RFC3339),
	}
}

func parseOrderID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(arg))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid order ID %q: %w", arg, err)
	}
	return id, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
