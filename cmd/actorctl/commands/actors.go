package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var actorsCmd = &cobra.Command{
	Use:   "actors",
	Short: "Inspect live actors via the admin HTTP server",
}

var actorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every live actor",
	RunE:  runActorsList,
}

var actorsInspectCmd = &cobra.Command{
	Use:   "inspect <id>",
	Short: "Show one actor's admin record",
	Args:  cobra.ExactArgs(1),
	RunE:  runActorsInspect,
}

func init() {
	actorsCmd.AddCommand(actorsListCmd)
	actorsCmd.AddCommand(actorsInspectCmd)
}

func runActorsList(cmd *cobra.Command, args []string) error {
	var out struct {
		Actors []string `json:"actors"`
	}
	if err := getJSON(fmt.Sprintf("http://%s/actors", adminHTTPAddr()), &out); err != nil {
		return err
	}
	for _, id := range out.Actors {
		fmt.Println(id)
	}
	return nil
}

func runActorsInspect(cmd *cobra.Command, args []string) error {
	var info struct {
		ID          string   `json:"id"`
		Behaviour   string   `json:"behaviour"`
		Links       []string `json:"links"`
		MessageType string   `json:"message_type"`
		ArgsType    string   `json:"args_type,omitempty"`
	}
	url := fmt.Sprintf("http://%s/actors/%s", adminHTTPAddr(), args[0])
	if err := getJSON(url, &info); err != nil {
		return err
	}

	fmt.Printf("id:           %s\n", info.ID)
	fmt.Printf("behaviour:    %s\n", info.Behaviour)
	fmt.Printf("message type: %s\n", info.MessageType)
	if info.ArgsType != "" {
		fmt.Printf("args type:    %s\n", info.ArgsType)
	}
	fmt.Printf("links:        %d\n", len(info.Links))
	return nil
}

// adminHTTPAddr normalizes adminAddr (which may be a bare ":8090" listen
// address) into a dialable host:port.
func adminHTTPAddr() string {
	if len(adminAddr) > 0 && adminAddr[0] == ':' {
		return "localhost" + adminAddr
	}
	return adminAddr
}
