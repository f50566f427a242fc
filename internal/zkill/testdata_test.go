package zkill

// sampleKill — усечённый, но реальный по форме package из RedisQ.
const sampleKill = `{
  "killID": 118000001,
  "killmail": {
    "killmail_id": 118000001,
    "killmail_time": "2024-05-01T18:42:17Z",
    "solar_system_id": 31000005,
    "victim": {
      "character_id": 90000001,
      "corporation_id": 98000001,
      "ship_type_id": 587,
      "damage_taken": 3120
    },
    "attackers": [
      {"character_id": 90000010, "corporation_id": 98000010, "alliance_id": 99000010, "ship_type_id": 17738, "damage_done": 2000, "final_blow": false},
      {"corporation_id": 98000011, "ship_type_id": 35832, "damage_done": 1120, "final_blow": true}
    ]
  },
  "zkb": {
    "locationID": 40000001,
    "hash": "abc123",
    "fittedValue": 1500000.5,
    "totalValue": 2000000000,
    "points": 1,
    "npc": false,
    "solo": false,
    "awox": true
  }
}`
