package application

func (s *Service) HistoryEntry(from, to Status, by string) string { return s.historyEntry(from, to, by) }
