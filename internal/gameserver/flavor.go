package gameserver

// PeriodText returns the line broadcast to players when the day enters period.
//
// Postcondition: Returns a non-empty string for every TimePeriod.
func PeriodText(period TimePeriod) string {
	switch period {
	case PeriodMidnight:
		return "The harbor bells toll midnight across black water."
	case PeriodLateNight:
		return "Lanterns gutter out one by one along the quay."
	case PeriodDawn:
		return "Grey light creeps over the masts as the tide turns."
	case PeriodMorning:
		return "Gulls wheel above the market stalls opening for the day."
	case PeriodAfternoon:
		return "The sun beats down on warm cobblestones."
	case PeriodDusk:
		return "Long shadows stretch from the warehouses as the sun drops."
	case PeriodEvening:
		return "Tavern windows glow and the lamplighters make their rounds."
	default:
		return "Only the watch fires break the darkness of the night."
	}
}
