package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lessonloop/lessonloop-go/internal/codec"
	"github.com/lessonloop/lessonloop-go/pkg/localstore"
	"github.com/lessonloop/lessonloop-go/pkg/store"
)

// NewDumpCommand creates the dump command: print the cached replica as
// JSON without connecting.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the cached replica as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(rootOpts)
		},
	}
}

func runDump(opts *RootOptions) error {
	if opts.Cache == "" {
		return fmt.Errorf("--cache or LESSONLOOP_CACHE is required")
	}

	cache, err := localstore.OpenSQLite(opts.Cache)
	if err != nil {
		return err
	}
	defer cache.Close()

	cb := codec.NewCBOR()
	st := store.New(cache, cb, opts.Logger())
	defer st.Close()

	st.Bootstrap(cb)

	out := map[string]any{
		"slots":            st.Slots.All(),
		"lessons":          st.Lessons.All(),
		"chats":            st.Chats.All(),
		"teacher_profiles": st.TeacherProfiles.All(),
		"student_profiles": st.StudentProfiles.All(),
		"users":            st.Users.All(),
		"posts":            st.Posts.All(),
		"notifications":    st.Notifications.All(),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
