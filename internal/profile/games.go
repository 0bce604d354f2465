package profile

import "time"

const (
	defaultAlignWindow = 5 * time.Minute
	maxSquadSize       = 4
)

var goalKeyStats = []Stat{StatGoals, StatShotsOnTarget, StatPossession}

func sportsArbitration() Arbitration {
	return Arbitration{
		PreferComplete: true,
		AlignWindow:    defaultAlignWindow,
		AlignBonus:     0.04,
		CompleteBonus:  0.05,
	}
}

func efootballProfile() *Profile {
	return &Profile{
		Game:     Efootball,
		Family:   FamilyGoals,
		TeamSize: 1,
		Fields: []Field{
			{Region: "teamA_user", Parser: ParseText, Stat: StatUserName, Slot: SlotA},
			{Region: "teamB_user", Parser: ParseText, Stat: StatUserName, Slot: SlotB},
			{Region: "teamA_goals", Parser: ParseInt, Stat: StatGoals, Slot: SlotA},
			{Region: "teamB_goals", Parser: ParseInt, Stat: StatGoals, Slot: SlotB},
			{Region: "teamA_shots_on_target", Parser: ParseInt, Stat: StatShotsOnTarget, Slot: SlotA},
			{Region: "teamB_shots_on_target", Parser: ParseInt, Stat: StatShotsOnTarget, Slot: SlotB},
			{Region: "teamA_possession", Parser: ParsePercent, Stat: StatPossession, Slot: SlotA},
			{Region: "teamB_possession", Parser: ParsePercent, Stat: StatPossession, Slot: SlotB},
			{Region: "penalties_block", Parser: ParsePenaltyPair, Stat: StatPenalties, Pair: [2]Slot{SlotA, SlotB}},
		},
		FullTime: &FullTime{
			Region:        "title_full_time",
			Labels:        []string{"full_time", "in_progress"},
			ClockFallback: true,
		},
		Rules:      []Rule{RulePossessionSum, RuleSOTBelowGoals},
		Cascade:    []Stage{StageGoals, StagePenalties, StagePenaltiesRequired, StagePercentScoring},
		SideLabels: [2]string{"side.a", "side.b"},
		Confidence: Confidence{
			Base:                   0.60,
			PerField:               0.06,
			KeyStats:               goalKeyStats,
			NotComplete:            0.15,
			NotCompleteUnlessClock: true,
			Ambiguous:              0.10,
		},
		Arbitration: sportsArbitration(),
	}
}

func fcmProfile() *Profile {
	return &Profile{
		Game:     FCM,
		Family:   FamilyGoals,
		TeamSize: 1,
		Fields: []Field{
			{Region: "uploader_user", Parser: ParseText, Stat: StatUserName, Slot: SlotA},
			{Region: "opponent_user", Parser: ParseText, Stat: StatUserName, Slot: SlotB},
			// the score block reads opponent first
			{Region: "score_block", Parser: ParseScorePair, Stat: StatGoals, Pair: [2]Slot{SlotB, SlotA}},
			{Region: "opponent_shots", Parser: ParseInt, Stat: StatShots, Slot: SlotB},
			{Region: "uploader_shots", Parser: ParseInt, Stat: StatShots, Slot: SlotA},
			{Region: "opponent_sot", Parser: ParseInt, Stat: StatShotsOnTarget, Slot: SlotB},
			{Region: "uploader_sot", Parser: ParseInt, Stat: StatShotsOnTarget, Slot: SlotA},
			{Region: "opponent_possession", Parser: ParsePercent, Stat: StatPossession, Slot: SlotB},
			{Region: "uploader_possession", Parser: ParsePercent, Stat: StatPossession, Slot: SlotA},
		},
		FullTime: &FullTime{
			Region:       "clock_full_time",
			Labels:       []string{"full_time"},
			NinetyMarker: true,
		},
		Rules:      []Rule{RuleSOTAboveShots, RulePossessionSum},
		Cascade:    []Stage{StageGoals, StagePercentScoring},
		SideLabels: [2]string{"side.uploader", "side.opponent"},
		Confidence: Confidence{
			Base:        0.60,
			PerField:    0.06,
			KeyStats:    goalKeyStats,
			NotComplete: 0.08,
			Ambiguous:   0.10,
		},
		Arbitration: sportsArbitration(),
	}
}

func dlsProfile() *Profile {
	return &Profile{
		Game:     DLS,
		Family:   FamilyGoals,
		TeamSize: 1,
		Fields: []Field{
			{Region: "left_user", Parser: ParseText, Stat: StatUserName, Slot: SlotA},
			{Region: "right_user", Parser: ParseText, Stat: StatUserName, Slot: SlotB},
			{Region: "score_block", Parser: ParseScorePair, Stat: StatGoals, Pair: [2]Slot{SlotA, SlotB}},
			{Region: "left_shots", Parser: ParseInt, Stat: StatShots, Slot: SlotA},
			{Region: "right_shots", Parser: ParseInt, Stat: StatShots, Slot: SlotB},
			{Region: "left_shot_accuracy", Parser: ParsePercent, Stat: StatShotAccuracy, Slot: SlotA},
			{Region: "right_shot_accuracy", Parser: ParsePercent, Stat: StatShotAccuracy, Slot: SlotB},
			{Region: "left_possession", Parser: ParsePercent, Stat: StatPossession, Slot: SlotA},
			{Region: "right_possession", Parser: ParsePercent, Stat: StatPossession, Slot: SlotB},
		},
		FullTime: &FullTime{
			Region:       "clock_full_time",
			Labels:       []string{"full_time"},
			NinetyMarker: true,
		},
		Identity:    IdentityResolve,
		EstimateSOT: true,
		Rules:       []Rule{RuleEstimatedSOTAboveShots, RulePossessionSum},
		Cascade:     []Stage{StageGoals, StagePercentScoring},
		SideLabels:  [2]string{"side.uploader", "side.opponent"},
		Confidence: Confidence{
			Base:        0.60,
			PerField:    0.06,
			KeyStats:    goalKeyStats,
			NotComplete: 0.08,
			Ambiguous:   0.10,
		},
		Arbitration: sportsArbitration(),
	}
}

func freefireProfile(teamSize int) *Profile {
	fields := make([]Field, 0, teamSize*6)
	for i := 0; i < teamSize; i++ {
		fields = append(fields,
			Field{Region: MemberRegion("left_usernames", i), Parser: ParseText, Stat: StatUserName, Slot: SlotA, Member: i},
			Field{Region: MemberRegion("right_usernames", i), Parser: ParseText, Stat: StatUserName, Slot: SlotB, Member: i},
			Field{Region: MemberRegion("left_kills", i), Parser: ParseInt, Stat: StatKills, Slot: SlotA, Member: i},
			Field{Region: MemberRegion("right_kills", i), Parser: ParseInt, Stat: StatKills, Slot: SlotB, Member: i},
			Field{Region: MemberRegion("left_damage", i), Parser: ParseInt, Stat: StatDamage, Slot: SlotA, Member: i},
			Field{Region: MemberRegion("right_damage", i), Parser: ParseInt, Stat: StatDamage, Slot: SlotB, Member: i},
		)
	}
	return &Profile{
		Game:       FreeFire,
		Family:     FamilySquad,
		TeamSize:   teamSize,
		Fields:     fields,
		Identity:   IdentitySquad,
		Rules:      []Rule{RuleSquadIdentity},
		Cascade:    []Stage{StageKills, StageDamage, StageAmbiguous},
		SideLabels: [2]string{"side.uploader", "side.opponent"},
		Confidence: Confidence{
			Base:      0.95,
			Ambiguous: 0.10,
			Notes:     0.15,
		},
		Arbitration: Arbitration{
			CompleteFromWinner: true,
			CompleteBonus:      0.05,
		},
	}
}

// builtins returns fresh copies of every shipped profile, without layouts.
func builtins() []*Profile {
	out := []*Profile{efootballProfile(), fcmProfile(), dlsProfile()}
	for n := 1; n <= maxSquadSize; n++ {
		out = append(out, freefireProfile(n))
	}
	return out
}

// DefaultTeamSize is used when a request does not name a team size.
func DefaultTeamSize(g Game) int {
	if g == FreeFire {
		return maxSquadSize
	}
	return 1
}
