package cli

import (
	"fmt"

	"github.com/KiraKC/Spectacle-Hypertext/domain/core/entities"
	"github.com/KiraKC/Spectacle-Hypertext/domain/core/valueobjects"

	"github.com/spf13/cobra"
)

func (a *app) createCommand() *cobra.Command {
	var (
		anchorID  string
		nodeID    string
		start     int
		end       int
		text      string
		timestamp float64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a text or media anchor",
		Long: "Create a text anchor with --start/--end/--text, or a media anchor with --timestamp.\n" +
			"A random anchor id is generated when --id is not given.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if anchorID == "" {
				anchorID = valueobjects.NewAnchorID()
			}

			var (
				anchor *entities.Anchor
				err    error
			)
			switch {
			case cmd.Flags().Changed("timestamp") && cmd.Flags().Changed("end"):
				return fmt.Errorf("--timestamp cannot be combined with a text extent")
			case cmd.Flags().Changed("timestamp"):
				anchor, err = entities.NewMediaAnchor(anchorID, nodeID, timestamp)
			default:
				anchor, err = entities.NewTextAnchor(anchorID, nodeID, start, end, text)
			}
			if err != nil {
				return err
			}
			return render(a, a.gateway.CreateAnchor(a.context(cmd), anchor))
		},
	}

	cmd.Flags().StringVar(&anchorID, "id", "", "anchor id")
	cmd.Flags().StringVar(&nodeID, "node", "", "id of the node the anchor belongs to")
	cmd.Flags().IntVar(&start, "start", 0, "first character of the text extent")
	cmd.Flags().IntVar(&end, "end", 0, "last character of the text extent")
	cmd.Flags().StringVar(&text, "text", "", "anchored text")
	cmd.Flags().Float64Var(&timestamp, "timestamp", 0, "media timestamp in seconds")
	cmd.MarkFlagRequired("node")
	return cmd
}

func (a *app) getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <anchorId>[,anchorId...] [anchorId...]",
		Short: "Get one or more anchors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if len(ids) == 1 {
				return render(a, a.gateway.GetAnchor(a.context(cmd), ids[0]))
			}
			return render(a, a.gateway.GetAnchors(a.context(cmd), ids))
		},
	}
}

func (a *app) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <anchorId>[,anchorId...] [anchorId...]",
		Short: "Delete one or more anchors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if len(ids) == 1 {
				return render(a, a.gateway.DeleteAnchor(a.context(cmd), ids[0]))
			}
			return render(a, a.gateway.DeleteAnchors(a.context(cmd), ids))
		},
	}
}

func (a *app) nodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Operate on all anchors of a node",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <nodeId>",
			Short: "List the anchors of a node",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return render(a, a.gateway.GetAnchorsByNode(a.context(cmd), args[0]))
			},
		},
		&cobra.Command{
			Use:   "delete <nodeId>",
			Short: "Delete the anchors of a node",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return render(a, a.gateway.DeleteAnchorsByNode(a.context(cmd), args[0]))
			},
		},
	)
	return cmd
}

// parseIDs accepts ids as separate arguments, comma-joined lists, or both.
func parseIDs(args []string) ([]string, error) {
	var ids []string
	for _, arg := range args {
		list, err := valueobjects.ParseAnchorIDList(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, list...)
	}
	list, err := valueobjects.NewAnchorIDList(ids...)
	if err != nil {
		return nil, err
	}
	return list.Strings(), nil
}
