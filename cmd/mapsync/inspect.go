package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mapsync-dev/mapsync/internal/errors"
	"github.com/mapsync-dev/mapsync/pkg/capture"
	"github.com/mapsync-dev/mapsync/pkg/protocol"
)

func inspectCmd() *cobra.Command {
	var (
		payload  bool
		region   string
		endpoint string
	)

	cmd := &cobra.Command{
		Use:   "inspect <file | s3://bucket/key>",
		Short: "Decode a captured byte stream",
		Long: `Print the frames of a captured stream in readable form.

The source holds raw bytes as they were sent on a connection, such as a
recording made with --capture. With --payload it holds a single frame
payload without length prefix.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var client capture.S3API
			if strings.HasPrefix(args[0], capture.S3Scheme) {
				client = capture.NewS3Client(region, endpoint)
			}
			data, err := capture.ReadAll(cmd.Context(), args[0], client)
			if err != nil {
				return errors.New(errors.CodeCaptureRead).WithDetail(args[0]).Wrap(err)
			}
			if payload {
				fmt.Fprintln(cmd.OutOrStdout(), protocol.Describe(data))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), protocol.DescribeStream(data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&payload, "payload", false, "Treat the source as one frame payload")
	cmd.Flags().StringVar(&region, "s3-region", "", "S3 region (default $AWS_REGION)")
	cmd.Flags().StringVar(&endpoint, "s3-endpoint", "", "S3-compatible endpoint URL")
	return cmd
}
