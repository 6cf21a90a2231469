package handlers

// Action types for logging and user updates
const (
	ActionCommandStart      = "command_start"
	ActionCommandHelp       = "command_help"
	ActionCommandVersion    = "command_version"
	ActionCommandModeration = "command_moderation"
	ActionCommandDrafts     = "command_drafts"
	ActionCommandVideos     = "command_videos"
	ActionCommandGenerate   = "command_generate"
	ActionCommandCut        = "command_cut"
	ActionCommandCancel     = "command_cancel"
	ActionCommandUnlink     = "command_unlink"
	ActionLinkAccount       = "link_account"
	ActionWorkflowInput     = "workflow_input"
	ActionWorkflowCallback  = "workflow_callback"
)
