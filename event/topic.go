package event

// Topic names a bus channel
type Topic string

const (
	// TopicGameStart fires once a level runtime is built and the loop is running
	// Trigger: session.Start | Payload: GameStartPayload
	TopicGameStart Topic = "game:start"

	// TopicGamePause fires on a Running to Paused transition
	// Trigger: session.Pause, visibility loss | Payload: nil
	TopicGamePause Topic = "game:pause"

	// TopicGameResume fires on a Paused to Running transition
	// Trigger: session.Resume | Payload: nil
	TopicGameResume Topic = "game:resume"

	// TopicGameEnd fires when the session returns to Idle
	// Trigger: session.End, last level cleared | Payload: GameEndPayload
	TopicGameEnd Topic = "game:end"

	// TopicLevelReset fires after the ball is returned to the start
	// Trigger: session.Reset | Payload: LevelPayload
	TopicLevelReset Topic = "level:reset"

	// TopicLevelComplete carries the completion record
	// Trigger: win detection | Payload: LevelCompletePayload
	TopicLevelComplete Topic = "level:complete"

	// TopicCollision fires for ball contacts above the impact threshold
	// Trigger: level.Runtime contact callback | Consumer: audio | Payload: CollisionPayload
	TopicCollision Topic = "collision"

	// TopicWin fires once per completed level
	// Trigger: win detection | Consumer: audio | Payload: LevelPayload
	TopicWin Topic = "win"

	// TopicRollStart fires when the ball begins rolling
	// Trigger: level.Runtime.Update | Consumer: audio | Payload: RollPayload
	TopicRollStart Topic = "roll:start"

	// TopicRollStop fires when the ball slows below the rolling threshold or the level unloads
	// Trigger: level.Runtime | Consumer: audio | Payload: nil
	TopicRollStop Topic = "roll:stop"

	// TopicSettingsChange fires after settings are applied
	// Trigger: session settings load and update | Consumer: audio | Payload: SettingsPayload
	TopicSettingsChange Topic = "settings:change"
)

// GameStartPayload identifies the level being played
type GameStartPayload struct {
	LevelID int
	Name    string
}

// GameEndPayload explains why the session stopped
type GameEndPayload struct {
	LevelID int
	Reason  string
}

// LevelPayload identifies a level for reset and win notifications
type LevelPayload struct {
	LevelID int
}

// LevelCompletePayload is published once per completion
type LevelCompletePayload struct {
	LevelID  int
	Elapsed  float64
	ParTime  float64
	Stars    int
	Improved bool
}

// CollisionPayload describes an impact worth a sound cue
type CollisionPayload struct {
	RelativeSpeed float64
	Volume        float64
}

// RollPayload carries the rolling cue volume
type RollPayload struct {
	Speed  float64
	Volume float64
}

// SettingsPayload carries the effective audio volumes and render quality
type SettingsPayload struct {
	MusicVolume float64
	SfxVolume   float64
	Quality     string
}
