package commands

import (
	"fmt"
	"strconv"

	"github.com/cuongbtq/fieldops-be/internal/api/dto"
	"github.com/cuongbtq/fieldops-be/internal/domain"
	"github.com/cuongbtq/fieldops-be/internal/queue"
	"github.com/cuongbtq/fieldops-be/internal/workflow"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// historyFetchLimit bounds concurrent history reads
const historyFetchLimit = 4

func newJobCmd(e *env) *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect and move jobs",
	}

	jobCmd.AddCommand(newJobHistoryCmd(e))
	jobCmd.AddCommand(newJobTransitionCmd(e))
	return jobCmd
}

func parseJobID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q: must be a positive integer", raw)
	}
	return id, nil
}

func newJobHistoryCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "history <job-id>...",
		Short: "Show the transition history of one or more jobs",
		Args:  cobra.MinimumNArgs(1),
		RunE: e.runE(func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, len(args))
			for i, raw := range args {
				id, err := parseJobID(raw)
				if err != nil {
					return err
				}
				ids[i] = id
			}

			histories := make([]dto.HistoryResponse, len(ids))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(historyFetchLimit)
			for i, id := range ids {
				g.Go(func() error {
					records, err := e.services.Jobs.History(ctx, id)
					if err != nil {
						return fmt.Errorf("job %d: %w", id, err)
					}
					histories[i] = dto.HistoryResponse{JobID: id, Transitions: records}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			if len(histories) == 1 {
				return printJSON(cmd, histories[0])
			}
			return printJSON(cmd, histories)
		}),
	}
}

func newJobTransitionCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transition <job-id> <status>",
		Short: "Move a job to a new status",
		Long: `Move a job to a new status on behalf of a principal. The change is
audited and the managers are notified exactly as through the API.`,
		Args: cobra.ExactArgs(2),
		RunE: e.runE(func(cmd *cobra.Command, args []string) error {
			jobID, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			status, err := domain.ParseJobStatus(args[1])
			if err != nil {
				return err
			}

			actorID, _ := cmd.Flags().GetInt64("actor")
			if actorID <= 0 {
				return fmt.Errorf("--actor must be a positive principal id")
			}

			req := workflow.TransitionRequest{
				JobID:   jobID,
				Status:  status,
				ActorID: actorID,
			}
			if cmd.Flags().Changed("notes") {
				notes, _ := cmd.Flags().GetString("notes")
				req.Notes = &notes
			}

			var lat, lng *float64
			if cmd.Flags().Changed("lat") {
				v, _ := cmd.Flags().GetFloat64("lat")
				lat = &v
			}
			if cmd.Flags().Changed("lng") {
				v, _ := cmd.Flags().GetFloat64("lng")
				lng = &v
			}
			req.Location, err = queue.GeoPoint(lat, lng)
			if err != nil {
				return err
			}

			job, err := e.services.Engine.Transition(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("error moving job %d: %w", jobID, err)
			}
			return printJSON(cmd, job)
		}),
	}

	cmd.Flags().Int64P("actor", "a", 0, "id of the principal making the change")
	cmd.Flags().String("notes", "", "free text stored with the audit record")
	cmd.Flags().Float64("lat", 0, "latitude where the change was made")
	cmd.Flags().Float64("lng", 0, "longitude where the change was made")
	_ = cmd.MarkFlagRequired("actor")

	return cmd
}
