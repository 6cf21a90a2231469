package workflows

import (
	"fmt"
	"strconv"
	"strings"
)

const callbackPrefix = "wf"

// Callback actions. Data is "wf:<action>:<item id>:<argument>".
const (
	cbPrev           = "prev"
	cbNext           = "next"
	cbEdit           = "edit"
	cbCancel         = "cancel"
	cbSave           = "save"
	cbClose          = "close"
	cbTransition     = "do"
	cbReject         = "reject"
	cbRegenerate     = "regen"
	cbRegenerateNow  = "regen_go"
	cbImagePrompt    = "img"
	cbImageNow       = "img_go"
	cbRemoveImage    = "img_del"
	cbNetworks       = "nets"
	cbToggleNetwork  = "net"
	cbNetworksDone   = "nets_ok"
	cbChooseCategory = "cat"
)

type callback struct {
	action string
	itemID int64
	arg    string
}

func callbackData(action string, itemID int64, arg string) string {
	return fmt.Sprintf("%s:%s:%d:%s", callbackPrefix, action, itemID, arg)
}

func isWorkflowCallback(data string) bool {
	return strings.HasPrefix(data, callbackPrefix+":")
}

func parseCallback(data string) (callback, error) {
	parts := strings.SplitN(data, ":", 4)
	if len(parts) != 4 || parts[0] != callbackPrefix || parts[1] == "" {
		return callback{}, fmt.Errorf("invalid callback data format: %q", data)
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return callback{}, fmt.Errorf("invalid item id in callback data %q: %w", data, err)
	}
	return callback{action: parts[1], itemID: id, arg: parts[3]}, nil
}
